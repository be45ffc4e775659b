package uploadqueue

import "testing"

func TestClassifyError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorType
	}{
		{"status 400", ClientError},
		{"Bad Request", ClientError},
		{"status 401", ClientError},
		{"Unauthorized", ClientError},
		{"status 404", ClientError},
		{"validation failed: missing field", ClientError},
		{"status 500", ServerError},
		{"status 502", ServerError},
		{"Service Unavailable", ServerError},
		{"Gateway Timeout", ServerError},
		{"connection refused", NetworkError},
		{"context deadline exceeded", NetworkError},
		{"dns resolution failed for host", NetworkError},
	}
	for _, c := range cases {
		if got := ClassifyError(c.msg); got != c.want {
			t.Errorf("ClassifyError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	r := DefaultRetryStrategy()
	if r.ShouldRetry(0, ClientError) {
		t.Fatalf("client errors must never retry")
	}
	if !r.ShouldRetry(0, ServerError) || !r.ShouldRetry(2, ServerError) {
		t.Fatalf("server errors should retry below max_retries")
	}
	if r.ShouldRetry(3, ServerError) {
		t.Fatalf("server errors should stop retrying at max_retries")
	}
}

func TestCalculateBackoff(t *testing.T) {
	r := DefaultRetryStrategy()
	want := []int64{2, 4, 8, 16}
	for i, w := range want {
		if got := r.CalculateBackoff(i).Seconds(); got != float64(w) {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", i, got, w)
		}
	}
}
