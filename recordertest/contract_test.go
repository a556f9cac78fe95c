package recordertest_test

import (
	"context"
	"testing"

	"github.com/goforj/recorder"
	"github.com/goforj/recorder/recordertest"
)

func TestRunStoreContractMemory(t *testing.T) {
	recordertest.RunStoreContract(t, recorder.NewMemoryStore(context.Background()), recordertest.Options{})
}

func TestRunStoreContractFile(t *testing.T) {
	store := recorder.NewFileStore(context.Background(), t.TempDir())
	recordertest.RunStoreContract(t, store, recordertest.Options{CaseName: "file tapes/contract"})
}

func TestRunStoreContractNull(t *testing.T) {
	recordertest.RunStoreContract(t, recorder.NewNullStore(context.Background()), recordertest.Options{NullSemantics: true})
}
