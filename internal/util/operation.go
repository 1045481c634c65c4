package util

import (
	"fmt"

	"github.com/go-sif/sifplan"
)

// SafeFilterOperation wraps a FilterOperation such that panics are recovered and nice error messages are constructed
func SafeFilterOperation(filterOp sifplan.FilterOperation) (safeFilterOp sifplan.FilterOperation) {
	return func(row sifplan.Row) (shouldKeep bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				shouldKeep = false
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Filter Panic: %w\nRow: %s\n%s", anErr, row.ToString(), GetTrace())
				} else {
					err = fmt.Errorf("Filter Panic: %v\nRow: %s\n%s", r, row.ToString(), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Filter Error: %w\nRow: %s", err, row.ToString())
			}
		}()
		shouldKeep, err = filterOp(row)
		return
	}
}

// SafeKeyingOperation wraps a KeyingOperation such that panics are recovered and nice error messages are constructed
func SafeKeyingOperation(keyingOp sifplan.KeyingOperation) (safeKeyingOp sifplan.KeyingOperation) {
	return func(row sifplan.Row) (key []byte, err error) {
		defer func() {
			if r := recover(); r != nil {
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Keying Panic: %w\nRow: %s\n%s", anErr, row.ToString(), GetTrace())
				} else {
					err = fmt.Errorf("Keying Panic: %v\nRow: %s\n%s", r, row.ToString(), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Keying Error: %w\nRow: %s", err, row.ToString())
			}
		}()
		key, err = keyingOp(row)
		return
	}
}

// SafeAccumulate adds a Row to an Accumulator such that panics are recovered and nice error messages are constructed
func SafeAccumulate(acc sifplan.Accumulator, row sifplan.Row) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("Accumulate Panic: %w\nRow: %s\n%s", anErr, row.ToString(), GetTrace())
			} else {
				err = fmt.Errorf("Accumulate Panic: %v\nRow: %s\n%s", r, row.ToString(), GetTrace())
			}
		} else if err != nil {
			err = fmt.Errorf("Accumulate Error: %w\nRow: %s", err, row.ToString())
		}
	}()
	err = acc.Accumulate(row)
	return
}

// SafeMerge merges one Accumulator into another such that panics are recovered and nice error messages are constructed
func SafeMerge(dst sifplan.Accumulator, src sifplan.Accumulator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Merge Panic: %v\n%s", r, GetTrace())
		} else if err != nil {
			err = fmt.Errorf("Merge Error: %w", err)
		}
	}()
	err = dst.Merge(src)
	return
}
