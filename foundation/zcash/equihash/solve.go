package equihash

import "sort"

// candidate is a partially merged Wagner row: the remaining hash elements
// and the ordered index list that produced them.
type candidate struct {
	elements []uint32
	indices  []uint32
}

// Solve runs a straightforward in-memory Wagner search and returns every
// solution found for the header. It materializes the full index space up
// front, so it is only suitable for small parameter sets such as the
// regression network; mainnet parameters would need gigabytes. Tooling and
// tests use it to mine real blocks.
func Solve(p Params, header []byte) ([][]uint32, error) {
	rows := make([]candidate, 0, p.MaxIndex())
	for idx := uint32(0); idx < p.MaxIndex(); idx++ {
		elements, err := leafElements(p, header, idx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, candidate{elements: elements, indices: []uint32{idx}})
	}

	for round := uint32(0); round < p.K; round++ {
		rows = collideRound(rows)
	}

	var solutions [][]uint32
	for _, row := range rows {
		if row.elements[0] == 0 && distinct(row.indices) {
			solutions = append(solutions, row.indices)
		}
	}

	return solutions, nil
}

// collideRound pairs every two rows that agree on their leading element,
// producing the next level of the collision tree. Rows whose index sets
// overlap are skipped; they can only lead to the trivial all-cancelling
// solutions the verifier rejects anyway.
func collideRound(rows []candidate) []candidate {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].elements[0] < rows[j].elements[0]
	})

	var next []candidate

	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && rows[end].elements[0] == rows[start].elements[0] {
			end++
		}

		for i := start; i < end; i++ {
			for j := i + 1; j < end; j++ {
				if merged, ok := merge(rows[i], rows[j]); ok {
					next = append(next, merged)
				}
			}
		}

		start = end
	}

	return next
}

// merge combines two colliding rows, ordering the subtrees so the one with
// the smaller leading index goes left.
func merge(a, b candidate) (candidate, bool) {
	if overlaps(a.indices, b.indices) {
		return candidate{}, false
	}

	if a.indices[0] > b.indices[0] {
		a, b = b, a
	}

	elements := make([]uint32, len(a.elements)-1)
	for i := range elements {
		elements[i] = a.elements[i+1] ^ b.elements[i+1]
	}

	indices := make([]uint32, 0, len(a.indices)+len(b.indices))
	indices = append(indices, a.indices...)
	indices = append(indices, b.indices...)

	return candidate{elements: elements, indices: indices}, true
}

func overlaps(a, b []uint32) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func distinct(indices []uint32) bool {
	seen := make(map[uint32]bool, len(indices))
	for _, idx := range indices {
		if seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
