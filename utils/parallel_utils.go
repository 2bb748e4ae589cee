package utils

import (
	"runtime"
	"sync"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ParallelDegree picks the worker count for maxIndex items: ProcLimit when
// set, otherwise the number of CPUs, never more than the number of items.
func ParallelDegree(ProcLimit, maxIndex int) (np int) {
	if ProcLimit > 0 {
		np = ProcLimit
	} else {
		np = runtime.NumCPU()
	}
	if np > maxIndex {
		np = maxIndex
	}
	if np < 1 {
		np = 1
	}
	return
}

// ParallelFor splits [0, maxIndex) into contiguous buckets and runs body once
// per bucket in its own goroutine. Workers must only write to slots inside
// their own [kMin, kMax).
func ParallelFor(ProcLimit, maxIndex int, body func(bucket, kMin, kMax int)) {
	if maxIndex <= 0 {
		return
	}
	var (
		pm = NewPartitionMap(ParallelDegree(ProcLimit, maxIndex), maxIndex)
		wg sync.WaitGroup
	)
	if pm.ParallelDegree == 1 {
		body(0, 0, maxIndex)
		return
	}
	for np := 0; np < pm.ParallelDegree; np++ {
		kMin, kMax := pm.GetBucketRange(np)
		wg.Add(1)
		go func(bn, k1, k2 int) {
			defer wg.Done()
			body(bn, k1, k2)
		}(np, kMin, kMax)
	}
	wg.Wait()
}
