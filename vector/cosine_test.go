package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{2, 0}

	if sim, ok := CosineSimilarity(a, b); !ok || sim != 0 {
		t.Fatalf("CosineSimilarity(a,b) = %v, %v; want 0, true", sim, ok)
	}
	if sim, ok := CosineSimilarity(a, c); !ok || sim != 1 {
		t.Fatalf("CosineSimilarity(a,c) = %v, %v; want 1, true", sim, ok)
	}
	if sim, ok := CosineSimilarity(a, []float32{-3, 0}); !ok || sim != -1 {
		t.Fatalf("CosineSimilarity(a,-a) = %v, %v; want -1, true", sim, ok)
	}
}

func TestCosineSimilarity_Undefined(t *testing.T) {
	cases := [][2][]float32{
		{{0, 0}, {1, 0}},
		{{1, 0}, {1, 0, 0}},
		{nil, nil},
	}
	for _, c := range cases {
		if sim, ok := CosineSimilarity(c[0], c[1]); ok || math.IsNaN(sim) {
			t.Errorf("CosineSimilarity(%v,%v) = %v, %v; want undefined", c[0], c[1], sim, ok)
		}
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	vecs := [][]float32{
		{0.3, -1.2, 4.5, 0.01},
		{1, 1, 1, 1},
		{-0.7, 0.2, 0.9, -3},
		{5, 0, 0, 0.5},
	}
	for i := range vecs {
		for j := range vecs {
			ab, _ := CosineSimilarity(vecs[i], vecs[j])
			ba, _ := CosineSimilarity(vecs[j], vecs[i])
			if ab != ba {
				t.Fatalf("cos(%d,%d) = %v but cos(%d,%d) = %v", i, j, ab, j, i, ba)
			}
			withNorms := CosineWithNorms(vecs[i], vecs[j], Norm(vecs[i]), Norm(vecs[j]))
			if math.Abs(withNorms-ab) > 1e-12 {
				t.Fatalf("CosineWithNorms = %v, CosineSimilarity = %v", withNorms, ab)
			}
		}
	}
}
