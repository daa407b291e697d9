package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimit(t *testing.T) {
	cases := []struct {
		name          string
		max           int64
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{name: "fits", max: 32, body: `{"code":"TEN"}`, contentLength: 14, wantStatus: http.StatusOK, wantBody: `{"code":"TEN"}`},
		{name: "streamed over limit", max: 5, body: `{"items":[]}`, contentLength: -1, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "declared over limit", max: 5, body: "12345", contentLength: 100, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "exactly at limit", max: 5, body: "12345", contentLength: -1, wantStatus: http.StatusOK, wantBody: "12345"},
		{name: "limit disabled", max: 0, body: strings.Repeat("x", 64), contentLength: 64, wantStatus: http.StatusOK, wantBody: strings.Repeat("x", 64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := BodyLimit{Max: tc.max}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				seen = string(data)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(tc.body))
			req.ContentLength = tc.contentLength
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusOK && seen != tc.wantBody {
				t.Fatalf("handler saw %q, want %q", seen, tc.wantBody)
			}
			if tc.wantStatus == http.StatusRequestEntityTooLarge && !strings.Contains(rr.Body.String(), `"maxBytes":5`) {
				t.Fatalf("missing maxBytes detail in %s", rr.Body.String())
			}
		})
	}
}
