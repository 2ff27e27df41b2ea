package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/simplechain/node/app/services/viewer/handlers"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Index(t *testing.T) {
	t.Log("Given the need to serve the block viewer page.")
	{
		app, err := handlers.UIMux(handlers.UIConfig{
			Build:    "test",
			Shutdown: make(chan os.Signal, 1),
			Log:      zap.NewNop().Sugar(),
			NodeHost: "node.local:8080",
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the mux: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct the mux.", success)

		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould get a 200: got %d", failed, w.Code)
		}
		t.Logf("\t%s\tShould get a 200.", success)

		if !strings.Contains(w.Body.String(), "node.local:8080") {
			t.Fatalf("\t%s\tShould point the page at the node: %s", failed, w.Body.String())
		}
		t.Logf("\t%s\tShould point the page at the node.", success)
	}
}
