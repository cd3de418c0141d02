package services

import (
	"slices"

	"food-dispatch-service/internal/domain"
	"food-dispatch-service/internal/geo"
)

// DefaultProximityMeters is the seed radius used by proximity clustering.
const DefaultProximityMeters = 5000.0

// ClusterEngine batches pending tasks into bounded-size clusters.
//
// The policy is sequential and greedy: the first remaining task seeds a
// cluster, then the remaining tasks are scanned from the back and any task
// within ProximityMeters of the seed joins until the cluster is full. It is
// order-sensitive on purpose and makes no attempt at optimal grouping.
type ClusterEngine struct {
	ProximityMeters float64
	// GroupByPriority partitions tasks by priority before clustering so
	// a cluster never mixes priorities.
	GroupByPriority bool
}

func NewClusterEngine(proximityMeters float64, groupByPriority bool) *ClusterEngine {
	if proximityMeters <= 0 {
		proximityMeters = DefaultProximityMeters
	}
	return &ClusterEngine{ProximityMeters: proximityMeters, GroupByPriority: groupByPriority}
}

// Cluster groups tasks into clusters of at most maxPerCluster tasks.
// Every input task appears in exactly one output cluster.
func (e *ClusterEngine) Cluster(tasks []domain.Task, maxPerCluster int) []domain.Cluster {
	if len(tasks) == 0 {
		return []domain.Cluster{}
	}
	if maxPerCluster < 1 {
		maxPerCluster = 1
	}

	if !e.GroupByPriority {
		return e.clusterByProximity(tasks, maxPerCluster)
	}

	clusters := []domain.Cluster{}
	for _, group := range partitionByPriority(tasks) {
		clusters = append(clusters, e.clusterByProximity(group, maxPerCluster)...)
	}
	return clusters
}

// Partitions keep the order in which each priority first appears.
func partitionByPriority(tasks []domain.Task) [][]domain.Task {
	index := make(map[domain.Priority]int)
	groups := [][]domain.Task{}

	for _, t := range tasks {
		p := t.Priority
		if p == "" {
			p = domain.PriorityNormal
		}
		i, ok := index[p]
		if !ok {
			i = len(groups)
			index[p] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], t)
	}
	return groups
}

func (e *ClusterEngine) clusterByProximity(tasks []domain.Task, maxPerCluster int) []domain.Cluster {
	if len(tasks) <= maxPerCluster {
		return []domain.Cluster{newCluster(slices.Clone(tasks))}
	}

	remaining := slices.Clone(tasks)
	clusters := []domain.Cluster{}

	for len(remaining) > 0 {
		seed := remaining[0]
		remaining = remaining[1:]
		members := []domain.Task{seed}

		for i := len(remaining) - 1; i >= 0 && len(members) < maxPerCluster; i-- {
			if geo.Distance(seed.Location, remaining[i].Location) < e.ProximityMeters {
				members = append(members, remaining[i])
				remaining = slices.Delete(remaining, i, i+1)
			}
		}

		clusters = append(clusters, newCluster(members))
	}
	return clusters
}

func newCluster(tasks []domain.Task) domain.Cluster {
	points := make([]domain.Location, len(tasks))
	for i, t := range tasks {
		points[i] = t.Location
	}

	center, err := geo.Centroid(points)
	if err != nil {
		// Only reachable for an empty cluster, which has no meaningful center.
		center = domain.Location{}
	}
	return domain.Cluster{Tasks: tasks, Center: center}
}
