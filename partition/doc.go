// Package partition maps a square matrix dimension N and a process count P
// onto contiguous row blocks, one block per rank.
//
// Every rank evaluates the same pure function, so all ranks agree on the
// layout without communicating:
//
//	rowsPerProc = N / P            (integer division)
//	rank r owns rows [r*rowsPerProc, (r+1)*rowsPerProc)
//
// When N is not a multiple of P the trailing N mod P rows are not covered by
// any rank's block. A Plan never drops them silently; the Policy decides:
//
//   - Strict (default): NewPlan rejects the configuration with ErrIndivisible.
//   - CoordinatorRemainder: the plan records Remainder = N mod P and the
//     coordinator computes rows [P*rowsPerProc, N) itself after the gather.
//
// Usage:
//
//	plan, err := partition.NewPlan(1000, 4)
//	if err != nil {
//	    // configuration error: abort before any collective
//	}
//	start, end, _ := plan.RowRange(rank)
package partition
