package chunker

import "math"

// CosineSimilarity returns the cosine of the angle between a and b,
// in [-1, 1]. Zero vectors and mismatched lengths yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp floating point drift.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim
}

// Point is a 2D projection of an embedding vector, for presentation only.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ReduceTo2D projects vectors onto their two principal components using
// power-iteration PCA. The result feeds visualizations; no retrieval or
// routing decision depends on it.
func ReduceTo2D(vectors [][]float32) []Point {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return make([]Point, len(vectors))
	}
	if dim == 1 {
		points := make([]Point, len(vectors))
		for i, v := range vectors {
			points[i] = Point{X: float64(v[0])}
		}
		return points
	}

	// Center the data.
	mean := make([]float64, dim)
	for _, v := range vectors {
		for j := 0; j < dim && j < len(v); j++ {
			mean[j] += float64(v[j])
		}
	}
	for j := range mean {
		mean[j] /= float64(len(vectors))
	}

	centered := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, dim)
		for j := 0; j < dim && j < len(v); j++ {
			row[j] = float64(v[j]) - mean[j]
		}
		centered[i] = row
	}

	pc1 := principalComponent(centered, nil)
	pc2 := principalComponent(centered, pc1)

	points := make([]Point, len(vectors))
	for i, row := range centered {
		points[i] = Point{X: dot(row, pc1), Y: dot(row, pc2)}
	}
	return points
}

const powerIterations = 50

// principalComponent finds the dominant eigenvector of the covariance of
// rows via power iteration, orthogonal to exclude when given.
func principalComponent(rows [][]float64, exclude []float64) []float64 {
	dim := len(rows[0])

	// Deterministic non-degenerate start vector.
	vec := make([]float64, dim)
	for j := range vec {
		vec[j] = 1 / math.Sqrt(float64(dim)+float64(j))
	}
	if exclude != nil {
		orthogonalize(vec, exclude)
	}
	normalize(vec)

	for iter := 0; iter < powerIterations; iter++ {
		// next = Cov * vec, computed as sum of row * (row . vec).
		next := make([]float64, dim)
		for _, row := range rows {
			proj := dot(row, vec)
			for j := range next {
				next[j] += row[j] * proj
			}
		}
		if exclude != nil {
			orthogonalize(next, exclude)
		}
		if normalize(next) == 0 {
			return vec
		}
		vec = next
	}
	return vec
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float64) float64 {
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return 0
	}
	for i := range v {
		v[i] /= norm
	}
	return norm
}

func orthogonalize(v, against []float64) {
	proj := dot(v, against)
	for i := range v {
		v[i] -= proj * against[i]
	}
}
