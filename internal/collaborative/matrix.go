package collaborative

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/temcen/hybridrec/pkg/models"
)

// buildMatrix indexes users and items in ascending id order and returns the
// sparse observed ratings together with the zero-filled dense matrix used for
// factorization. The sparse side keeps a rating of 0 distinguishable from
// "not rated"; only the factorization input conflates the two.
func buildMatrix(ratings []models.Rating) (*model, *mat.Dense) {
	userSet := make(map[string]struct{})
	itemSet := make(map[string]struct{})
	for _, r := range ratings {
		userSet[r.UserID] = struct{}{}
		itemSet[r.ItemID] = struct{}{}
	}

	m := &model{
		userIDs: sortedKeys(userSet),
		itemIDs: sortedKeys(itemSet),
	}
	m.userIndex = indexOf(m.userIDs)
	m.itemIndex = indexOf(m.itemIDs)

	m.observed = make([]map[int]float64, len(m.userIDs))
	for u := range m.observed {
		m.observed[u] = make(map[int]float64)
	}

	dense := mat.NewDense(len(m.userIDs), len(m.itemIDs), nil)
	for _, r := range ratings {
		u := m.userIndex[r.UserID]
		i := m.itemIndex[r.ItemID]
		m.observed[u][i] = r.Rating
		dense.Set(u, i, r.Rating)
	}

	return m, dense
}

// factorize computes a rank-k truncated SVD A ≈ U_k Σ_k V_kᵀ and returns
// U_k Σ_k as user factors and V_k as item factors. The decomposition is
// exact, so identical input always yields identical factors.
func factorize(a *mat.Dense, k int) (*mat.Dense, *mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("singular value decomposition did not converge")
	}

	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	users, _ := u.Dims()
	items, _ := v.Dims()

	userFactors := mat.NewDense(users, k, nil)
	for i := 0; i < users; i++ {
		for j := 0; j < k; j++ {
			userFactors.Set(i, j, u.At(i, j)*values[j])
		}
	}

	itemFactors := mat.DenseCopyOf(v.Slice(0, items, 0, k))

	return userFactors, itemFactors, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(ids []string) map[string]int {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return index
}
