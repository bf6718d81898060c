package ntuple_test

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/pkg/dataset"
	"github.com/ajitpratap0/ntuple/pkg/ntuple"
)

func exampleDataset() dataset.Dataset {
	m := dataset.NewMemory("example")
	_ = dataset.AddScalar(m, "run", []int32{1, 2, 3})
	_ = dataset.AddVector(m, "jetPt", [][]float64{{40.5, 30.25}, {55}, {}})
	return m
}

func ExampleReader() {
	r, err := ntuple.NewReader(exampleDataset(), ntuple.WithLogger(zap.NewNop()))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer r.Close()

	_ = r.RegisterFunc(func(r *ntuple.Reader) {
		jets, _ := ntuple.Vec[float64](r, "jetPt")
		_ = ntuple.RegisterDerivedVar(r, "nJets", int32(len(jets)))
	})

	for r.NextEvent() {
		run, _ := ntuple.Var[int32](r, "run")
		nJets, _ := ntuple.Var[int32](r, "nJets")
		fmt.Printf("event %d: run=%d nJets=%d\n", r.GetEvtNum(), run, nJets)
	}
	// Output:
	// event 1: run=1 nJets=2
	// event 2: run=2 nJets=1
	// event 3: run=3 nJets=0
}

func ExampleReader_SetConvertFloatingPointVectors() {
	r, _ := ntuple.NewReader(exampleDataset(), ntuple.WithLogger(zap.NewNop()))
	defer r.Close()

	_ = r.SetConvertFloatingPointVectors(ntuple.DefaultVectorConversions())
	r.NextEvent()

	pt, err := ntuple.Vec[float32](r, "jetPt")
	fmt.Println(pt, err)
	// Output: [40.5 30.25] <nil>
}

func ExampleReader_RenderTupleMembers() {
	r, _ := ntuple.NewReader(exampleDataset(), ntuple.WithLogger(zap.NewNop()))
	defer r.Close()

	_ = r.RenderTupleMembers(os.Stdout, "csv")
	// Output:
	// Name,Type,Origin
	// jetPt,[]float64,bound
	// run,int32,bound
}
