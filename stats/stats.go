package stats

import (
	"sort"
	"sync"
	"time"
)

const statisticRollingWindows = 5

// RunStatistics contains statistics about a running plan, keyed by plan node id and stage id
type RunStatistics struct {
	lock                        sync.Mutex
	started                     bool
	finished                    bool
	startTime                   time.Time
	totalRuntime                time.Duration
	rowsProcessed               map[int]int64
	partitionsProcessed         map[int]int64
	recentPartitionRuntimes     []time.Duration // for rolling average of recent partition processing times
	recentPartitionRuntimesHead int
	stageStartTimes             map[int]time.Time
	stageRuntimes               map[int]time.Duration
}

// Start triggers statistics tracking, if it hasn't been started already
func (rs *RunStatistics) Start() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.started {
		return
	}
	rs.started = true
	rs.startTime = time.Now()
	rs.rowsProcessed = make(map[int]int64)
	rs.partitionsProcessed = make(map[int]int64)
	rs.recentPartitionRuntimes = make([]time.Duration, statisticRollingWindows)
	rs.stageStartTimes = make(map[int]time.Time)
	rs.stageRuntimes = make(map[int]time.Duration)
}

// Finish completes statistics tracking
func (rs *RunStatistics) Finish() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started || rs.finished {
		return
	}
	rs.finished = true
	rs.totalRuntime = time.Since(rs.startTime)
}

// StartStage tracks the beginning of a Stage
func (rs *RunStatistics) StartStage(stage int) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		return
	}
	rs.stageStartTimes[stage] = time.Now()
}

// EndStage tracks the end of a Stage, returning its runtime
func (rs *RunStatistics) EndStage(stage int) time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	start, ok := rs.stageStartTimes[stage]
	if !ok {
		return 0
	}
	delete(rs.stageStartTimes, stage)
	elapsed := time.Since(start)
	rs.stageRuntimes[stage] = elapsed
	rs.recentPartitionRuntimes = make([]time.Duration, statisticRollingWindows)
	rs.recentPartitionRuntimesHead = 0
	return elapsed
}

// EndPartition tracks the emission of a Partition by a plan node
func (rs *RunStatistics) EndPartition(node int, numRows int, elapsed time.Duration) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if !rs.started {
		return
	}
	rs.recentPartitionRuntimes[rs.recentPartitionRuntimesHead] = elapsed
	rs.recentPartitionRuntimesHead = (rs.recentPartitionRuntimesHead + 1) % len(rs.recentPartitionRuntimes)
	rs.rowsProcessed[node] += int64(numRows)
	rs.partitionsProcessed[node]++
}

// GetStartTime returns the start time of the run
func (rs *RunStatistics) GetStartTime() time.Time {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.startTime
}

// GetRuntime returns the running time of the run
func (rs *RunStatistics) GetRuntime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	if rs.finished {
		return rs.totalRuntime
	}
	if !rs.started {
		return 0
	}
	return time.Since(rs.startTime)
}

// GetNumRowsProcessed returns the number of Rows emitted by a plan node so far
func (rs *RunStatistics) GetNumRowsProcessed(node int) int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rowsProcessed[node]
}

// GetNumPartitionsProcessed returns the number of Partitions emitted by a plan node so far
func (rs *RunStatistics) GetNumPartitionsProcessed(node int) int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.partitionsProcessed[node]
}

// GetCurrentPartitionProcessingTime returns a rolling average of partition processing time
func (rs *RunStatistics) GetCurrentPartitionProcessingTime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	var total time.Duration
	for _, d := range rs.recentPartitionRuntimes {
		total += d
	}
	return total / statisticRollingWindows
}

// GetStageRuntimes returns the recorded runtime of every finished Stage, by stage id
func (rs *RunStatistics) GetStageRuntimes() map[int]time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	runtimes := make(map[int]time.Duration, len(rs.stageRuntimes))
	for id, d := range rs.stageRuntimes {
		runtimes[id] = d
	}
	return runtimes
}

// GetNodes returns the ids of every plan node which has emitted a Partition, in ascending order
func (rs *RunStatistics) GetNodes() []int {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	nodes := make([]int, 0, len(rs.partitionsProcessed))
	for id := range rs.partitionsProcessed {
		nodes = append(nodes, id)
	}
	sort.Ints(nodes)
	return nodes
}
