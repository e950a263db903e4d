package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/location"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestTransitionsAndGpsOutcomes(t *testing.T) {
	m := New(func() int { return 3 })

	m.ObserveTransition(attendance.Transition{Outcome: attendance.Outcome{Kind: attendance.KindCheckIn, Accepted: true}})
	m.ObserveTransition(attendance.Transition{Outcome: attendance.Outcome{Kind: attendance.KindCheckOut, Err: attendance.ErrWrongWorksite}})
	m.ObserveTransition(attendance.Transition{Outcome: attendance.Outcome{Kind: attendance.KindCheckIn, Err: &location.Error{Status: location.GpsDenied}}})
	m.ObserveGps(location.GpsRequesting)
	m.ObserveGps(location.GpsOn)

	body := scrape(t, m)
	for _, want := range []string{
		`attendance_transitions_total{kind="checkIn",result="accepted"} 1`,
		`attendance_transitions_total{kind="checkOut",result="wrong_worksite"} 1`,
		`attendance_transitions_total{kind="checkIn",result="gps_denied"} 1`,
		`attendance_gps_outcomes_total{status="on"} 1`,
		`attendance_live_machines 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Missing %s", want)
		}
	}
	if strings.Contains(body, `status="requesting"`) {
		t.Error("Requesting is not an outcome")
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New(nil)
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/worksites/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/worksites/abc", nil))

	want := `http_requests_total{route="/api/worksites/{id}",status="404"} 1`
	if body := scrape(t, m); !strings.Contains(body, want) {
		t.Errorf("Missing %s", want)
	}
}
