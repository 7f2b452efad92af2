package partition_test

import (
	"fmt"

	"github.com/katalvlaran/lvmatmul/partition"
)

// ExampleNewPlan lays out a 1000×1000 matrix over 4 ranks.
func ExampleNewPlan() {
	plan, err := partition.NewPlan(1000, 4)
	if err != nil {
		fmt.Println("error:", err)

		return
	}
	for r := 0; r < plan.P; r++ {
		start, end, _ := plan.RowRange(r)
		fmt.Printf("rank %d: rows [%d, %d)\n", r, start, end)
	}
	// Output:
	// rank 0: rows [0, 250)
	// rank 1: rows [250, 500)
	// rank 2: rows [500, 750)
	// rank 3: rows [750, 1000)
}

// ExampleWithPolicy shows the coordinator picking up the trailing rows.
func ExampleWithPolicy() {
	plan, _ := partition.NewPlan(10, 3, partition.WithPolicy(partition.CoordinatorRemainder))
	start, end := plan.RemainderRange()
	fmt.Println(plan)
	fmt.Printf("coordinator also computes rows [%d, %d)\n", start, end)
	// Output:
	// n=10 p=3 rowsPerProc=3 remainder=1 policy=coordinator-remainder
	// coordinator also computes rows [9, 10)
}
