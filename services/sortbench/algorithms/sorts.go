// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package algorithms

import "github.com/AleutianAI/sortbench/services/sortbench/metrics"

// Bubble sorts data in place with adjacent exchanges.
//
// One comparison is recorded per adjacent pair examined and one move per
// exchange. A pass with no exchanges ends the sort.
func Bubble(data []int, m *metrics.Metrics) {
	n := len(data)
	for i := 0; i < n-1; i++ {
		swapped := false
		for j := 0; j < n-i-1; j++ {
			m.RecordComparison()
			if data[j] > data[j+1] {
				data[j], data[j+1] = data[j+1], data[j]
				m.RecordMove()
				swapped = true
			}
		}
		if !swapped {
			break
		}
	}
}

// Insertion sorts data in place by shifting larger elements right.
//
// One comparison is recorded per shift candidate and one move per shift.
// Writing the key into its final slot is not counted.
func Insertion(data []int, m *metrics.Metrics) {
	for i := 1; i < len(data); i++ {
		key := data[i]
		j := i - 1
		for j >= 0 {
			m.RecordComparison()
			if data[j] <= key {
				break
			}
			data[j+1] = data[j]
			m.RecordMove()
			j--
		}
		data[j+1] = key
	}
}

// Selection sorts data in place by repeatedly selecting the minimum.
//
// Every candidate compared against the current minimum is recorded. A move is
// recorded only when the minimum is not already at the front of the pass.
func Selection(data []int, m *metrics.Metrics) {
	n := len(data)
	for i := 0; i < n-1; i++ {
		minIdx := i
		for j := i + 1; j < n; j++ {
			m.RecordComparison()
			if data[j] < data[minIdx] {
				minIdx = j
			}
		}
		if minIdx != i {
			data[i], data[minIdx] = data[minIdx], data[i]
			m.RecordMove()
		}
	}
}

// Merge sorts data in place with top-down merge sort. It is stable.
//
// Each element-pair comparison in the merge step is recorded. Only elements
// taken from the right run count as moves; on ties the left element wins.
func Merge(data []int, m *metrics.Metrics) {
	mergeSort(data, 0, len(data)-1, m)
}

func mergeSort(data []int, left, right int, m *metrics.Metrics) {
	if left >= right {
		return
	}
	mid := left + (right-left)/2
	mergeSort(data, left, mid, m)
	mergeSort(data, mid+1, right, m)
	merge(data, left, mid, right, m)
}

func merge(data []int, left, mid, right int, m *metrics.Metrics) {
	l := make([]int, mid-left+1)
	r := make([]int, right-mid)
	copy(l, data[left:mid+1])
	copy(r, data[mid+1:right+1])

	i, j, k := 0, 0, left
	for i < len(l) && j < len(r) {
		m.RecordComparison()
		if l[i] <= r[j] {
			data[k] = l[i]
			i++
		} else {
			data[k] = r[j]
			j++
			m.RecordMove()
		}
		k++
	}

	// Tails are copied as-is and are not counted.
	k += copy(data[k:], l[i:])
	copy(data[k:], r[j:])
}

// Quick sorts data in place with Lomuto-partition quicksort, always using the
// last element of the range as the pivot.
func Quick(data []int, m *metrics.Metrics) {
	quickSort(data, 0, len(data)-1, m)
}

func quickSort(data []int, low, high int, m *metrics.Metrics) {
	if low < high {
		p := Partition(data, low, high, m)
		quickSort(data, low, p-1, m)
		quickSort(data, p+1, high, m)
	}
}

// Partition performs a Lomuto partition of data[low:high+1] around
// data[high] and returns the pivot's final index.
//
// One comparison is recorded per element scanned against the pivot. Swaps are
// recorded only when they actually move something: a swap of an index with
// itself is skipped, and the final pivot placement is skipped when the slot
// already holds the pivot value.
func Partition(data []int, low, high int, m *metrics.Metrics) int {
	pivot := data[high]
	i := low - 1

	for j := low; j < high; j++ {
		m.RecordComparison()
		if data[j] <= pivot {
			i++
			if i != j {
				data[i], data[j] = data[j], data[i]
				m.RecordMove()
			}
		}
	}

	if data[i+1] != data[high] {
		data[i+1], data[high] = data[high], data[i+1]
		m.RecordMove()
	}
	return i + 1
}
