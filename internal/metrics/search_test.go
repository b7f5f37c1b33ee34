package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusOf(t *testing.T) {
	if StatusOf(nil) != StatusOK {
		t.Error("nil error should map to ok")
	}
	if StatusOf(errors.New("boom")) != StatusError {
		t.Error("error should map to error")
	}
}

func TestObserveIndex(t *testing.T) {
	ObserveIndex("word", 12, 40)
	if got := testutil.ToFloat64(IndexDocuments.WithLabelValues("word")); got != 12 {
		t.Errorf("index_documents = %v", got)
	}
	if got := testutil.ToFloat64(IndexTerms.WithLabelValues("word")); got != 40 {
		t.Errorf("index_terms = %v", got)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()
}
