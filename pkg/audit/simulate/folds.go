package simulate

import "math/rand"

// fold is one train/validation partition expressed as row indices.
type fold struct {
	train []int
	test  []int
}

// shuffledKFold partitions n rows into k folds after a seeded shuffle. The
// seed is the only source of randomness: two calls with the same inputs
// return identical folds.
func shuffledKFold(n, k int, seed int64) []fold {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	folds := make([]fold, 0, k)
	size := n / k
	for f := 0; f < k; f++ {
		start := f * size
		end := start + size
		if f == k-1 {
			end = n
		}
		test := idx[start:end]
		train := make([]int, 0, n-len(test))
		train = append(train, idx[:start]...)
		train = append(train, idx[end:]...)
		folds = append(folds, fold{train: train, test: test})
	}
	return folds
}

// expandingTimeSplit partitions rows (already in chronological order) into
// k-1 expanding windows: train on everything before the window, validate on
// the window. Mirrors scikit-learn's TimeSeriesSplit.
func expandingTimeSplit(order []int, k int) []fold {
	n := len(order)
	size := n / k
	folds := make([]fold, 0, k-1)
	for f := 1; f < k; f++ {
		trainEnd := f * size
		testEnd := trainEnd + size
		if f == k-1 {
			testEnd = n
		}
		train := append([]int(nil), order[:trainEnd]...)
		test := append([]int(nil), order[trainEnd:testEnd]...)
		folds = append(folds, fold{train: train, test: test})
	}
	return folds
}
