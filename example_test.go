package tbham_test

import (
	"fmt"
	"log"

	"github.com/fumin/tbham"
)

func Example() {
	// A chain of 4 sites with unit hopping.
	h, err := tbham.NewChain(tbham.ChainParams(1), 4)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	vvs, err := h.SortedEigenvalueProblem(4, 0.1)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	for _, vv := range vvs {
		fmt.Printf("%.4f\n", real(vv.Val))
	}

	// Output:
	// -1.6180
	// -0.6180
	// 0.6180
	// 1.6180
}
