package identity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/voxmap/voxmap/faults"
	"github.com/voxmap/voxmap/timeline"
)

// ClusterConfig tunes the density-based clustering of speaker embeddings.
type ClusterConfig struct {
	// Eps is the neighbourhood radius in cosine distance.
	Eps float64
	// MinSamples is the minimum cluster size; embeddings that reach no cluster
	// become outliers.
	MinSamples int
}

// DefaultClusterConfig matches the tuning the pipeline ships with.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{Eps: 0.3, MinSamples: 1}
}

// AutoMap builds an identity map by clustering every window's speaker
// embeddings over cosine distance. Each non-outlier cluster gets a generated
// name in cluster-id order; outliers each get a unique name tagged with their
// originating window and local label so they are never silently merged with an
// unrelated cluster. With a single window there is nothing to reconcile and
// manual labeling applies instead.
func AutoMap(windows []timeline.Window, cfg ClusterConfig) (timeline.IdentityMap, *faults.Set, error) {
	if len(windows) < 2 {
		return nil, nil, faults.Configf("automatic mapping needs more than one window, got %d", len(windows))
	}
	if cfg.Eps <= 0 {
		return nil, nil, faults.Configf("cluster eps must be positive, got %.3f", cfg.Eps)
	}
	if cfg.MinSamples <= 0 {
		return nil, nil, faults.Configf("cluster min samples must be positive, got %d", cfg.MinSamples)
	}

	fs := &faults.Set{}

	var keys []timeline.SpeakerKey
	var vectors [][]float64
	for _, w := range windows {
		locals := make([]string, 0, len(w.SpeakerEmbeddings))
		for sp := range w.SpeakerEmbeddings {
			locals = append(locals, sp)
		}
		sort.Strings(locals)
		for _, sp := range locals {
			keys = append(keys, timeline.SpeakerKey{Window: w.Meta.Index, Local: sp})
			vectors = append(vectors, w.SpeakerEmbeddings[sp])
		}
	}
	if len(vectors) == 0 {
		return nil, fs, faults.Configf("no speaker embeddings available for clustering")
	}

	labels := dbscan(vectors, cfg.Eps, cfg.MinSamples)

	clusterIDs := map[int]bool{}
	for _, l := range labels {
		if l >= 0 {
			clusterIDs[l] = true
		}
	}
	sorted := make([]int, 0, len(clusterIDs))
	for id := range clusterIDs {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)
	names := map[int]string{}
	for i, id := range sorted {
		names[id] = globalName(i)
	}

	m := timeline.IdentityMap{}
	outliers := 0
	for i, k := range keys {
		if labels[i] >= 0 {
			m[k] = names[labels[i]]
			continue
		}
		m[k] = outlierName(k)
		outliers++
	}
	if outliers > 0 {
		fs.Warnf("%d speaker(s) did not cluster and kept unique outlier names", outliers)
	}
	fs.Notef("clustering produced %d speaker(s) from %d window labels", len(sorted), len(keys))

	return m, fs, nil
}

func outlierName(k timeline.SpeakerKey) string {
	return fmt.Sprintf("SPEAKER_OUTLIER_%02d_%s", k.Window, k.Local)
}

const (
	labelUnvisited = -2
	labelNoise     = -1
)

// dbscan clusters points over cosine distance. Returns one label per point;
// -1 marks outliers.
func dbscan(points [][]float64, eps float64, minPts int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = labelUnvisited
	}

	cluster := 0
	for i := range points {
		if labels[i] != labelUnvisited {
			continue
		}
		neighbours := regionQuery(points, i, eps)
		if len(neighbours) < minPts {
			labels[i] = labelNoise
			continue
		}
		labels[i] = cluster
		// Expand: the frontier grows while new core points keep joining.
		for qi := 0; qi < len(neighbours); qi++ {
			q := neighbours[qi]
			if labels[q] == labelNoise {
				labels[q] = cluster
			}
			if labels[q] != labelUnvisited {
				continue
			}
			labels[q] = cluster
			qNeighbours := regionQuery(points, q, eps)
			if len(qNeighbours) >= minPts {
				neighbours = append(neighbours, qNeighbours...)
			}
		}
		cluster++
	}
	return labels
}

func regionQuery(points [][]float64, i int, eps float64) []int {
	var out []int
	for j := range points {
		if cosineDistance(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

// cosineDistance is 1 - cos(a, b). Zero vectors are maximally distant from
// everything but themselves.
func cosineDistance(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		if na == 0 && nb == 0 {
			return 0
		}
		return 1
	}
	sim := floats.Dot(a, b) / (na * nb)
	return 1 - math.Min(1, math.Max(-1, sim))
}
