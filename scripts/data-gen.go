/*
	Basic script that generates a churn-heavy sample table to help with
	manual testing: appends, deletes and packs in cycles so the file
	accumulates realistic tombstone and memo-block patterns.
*/

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/xbasekit/xbase/xbase"
)

const (
	path   = "sample.dbf"
	fields = "NAME C(20); AGE N(3,0); PAID L; NOTES M"

	// Fixed universe
	totalNames = 100

	// Per-cycle behavior
	appendsPerCycle = 20
	deletesPerCycle = 5
	cycles          = 50

	packEvery     = 10
	progressEvery = 10
)

func main() {
	start := time.Now()
	fmt.Println("Starting table churn generator")

	table, err := xbase.Create(path, xbase.DBase3, fields)
	if err != nil {
		fmt.Println("create error:", err)
		return
	}
	defer table.Close()

	names := makeNames(totalNames)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for cycle := 1; cycle <= cycles; cycle++ {

		// ---- APPEND PHASE ----
		for i := 0; i < appendsPerCycle; i++ {
			_, err := table.Append(map[string]xbase.Value{
				"NAME":  xbase.Text(names[rng.Intn(len(names))]),
				"AGE":   xbase.Int(int64(18 + rng.Intn(80))),
				"PAID":  xbase.Bool(rng.Intn(2) == 0),
				"NOTES": xbase.Text(fmt.Sprintf("cycle %d entry %d", cycle, i)),
			})
			if err != nil {
				fmt.Println("append error:", err)
				return
			}
		}

		// ---- DELETE PHASE (leaves tombstones for pack to collect) ----
		for i := 0; i < deletesPerCycle && table.Len() > 0; i++ {
			rec, err := table.At(rng.Intn(table.Len()))
			if err != nil {
				fmt.Println("at error:", err)
				return
			}
			if err := rec.Delete(); err != nil {
				fmt.Println("delete error:", err)
				return
			}
		}

		if cycle%packEvery == 0 {
			if err := table.Pack(); err != nil {
				fmt.Println("pack error:", err)
				return
			}
		}

		if cycle%progressEvery == 0 {
			fmt.Printf("completed %d cycles, %d records\n", cycle, table.Len())
		}
	}

	fmt.Printf("Generated %s with %d records in %v\n", path, table.Len(), time.Since(start))
}

func makeNames(n int) []string {
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("person-%03d", i)
	}
	return names
}
