package ai

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct {
	response MatchResponse
	err      error
	calls    int
}

func (s *stubClient) GenerateCompletion(_ context.Context, _ string, _ ...GenerateOption) (string, error) {
	return "", nil
}

func (s *stubClient) GenerateCompletionWithFormat(_ context.Context, _, _, _ string, out any, _ ...GenerateOption) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	if res, ok := out.(*MatchResponse); ok {
		*res = s.response
	}
	return nil
}

func (s *stubClient) ResetMetrics()            {}
func (s *stubClient) GetMetrics() ModelMetrics { return ModelMetrics{} }

func TestCallMatchAINoCandidates(t *testing.T) {
	client := &stubClient{}
	res, err := CallMatchAI(context.Background(), "Apple", "Company", nil, client, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Match || res.CandidateIndex != -1 {
		t.Errorf("got %+v, want immediate no-match", res)
	}
	if client.calls != 0 {
		t.Errorf("model called %d times with no candidates", client.calls)
	}
}

func TestCallMatchAIOutOfRangeIndex(t *testing.T) {
	client := &stubClient{response: MatchResponse{Match: true, CandidateIndex: 5, Confidence: 0.9}}
	res, err := CallMatchAI(context.Background(), "Apple", "Company",
		[]MatchCandidate{{Name: "Apple", Type: "Company"}}, client, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Match {
		t.Errorf("invented candidate index was accepted: %+v", res)
	}
}

func TestCallMatchAIRetries(t *testing.T) {
	client := &stubClient{err: errors.New("rate limited")}
	_, err := CallMatchAI(context.Background(), "Apple", "Company",
		[]MatchCandidate{{Name: "Apple", Type: "Company"}}, client, 3)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if client.calls != 3 {
		t.Errorf("model called %d times, want 3", client.calls)
	}
}

func TestCallMatchAINilClient(t *testing.T) {
	if _, err := CallMatchAI(context.Background(), "Apple", "Company", nil, nil, 3); err == nil {
		t.Fatal("expected error for nil client")
	}
}
