package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SOSDesk/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL + "/",
		Paths:   Paths{History: "/sos-history", SaveCase: "/sos-data", UserInfo: "/user-info"},
		Token:   "secret",
	}, logger.Nop())
}

func TestGetPatient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user-info", r.URL.Path)
		assert.Equal(t, "U7", r.URL.Query().Get("userId"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":200,"userInfo":{"id":7,"name":"Ravi","gender":"M","borndate":"1980-02-01","bloodGroup":"O+"}}`))
	})

	p, err := c.GetPatient(context.Background(), "U7")
	require.NoError(t, err)
	assert.Equal(t, "Ravi", p.Name)
	assert.Equal(t, "1980-02-01", p.BirthDate)
	assert.Equal(t, "O+", p.BloodGroup)
}

func TestGetPatientNotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"embedded": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":404,"message":"no such user"}`))
		},
		"http": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(t, h).GetPatient(context.Background(), "U7")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGetPatientServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":500,"message":"db down"}`))
	})

	_, err := c.GetPatient(context.Background(), "U7")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Contains(t, err.Error(), "db down")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSaveCaseSendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sos-data", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "U7", r.FormValue("userId"))
		assert.Equal(t, "H1", r.FormValue("hospitalId"))
		w.Write([]byte(`{"status":200}`))
	})

	assert.NoError(t, c.SaveCase(context.Background(), "U7", "H1"))
}

func TestSaveCaseFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	assert.Error(t, c.SaveCase(context.Background(), "U7", "H1"))
}

func TestSaveCaseRequiresConfirmedStatus(t *testing.T) {
	for _, body := range []string{`{"message":"db write skipped"}`, `{"status":201}`, ``} {
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})

			err := c.SaveCase(context.Background(), "U7", "H1")
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "save case", se.Op)
		})
	}
}

func TestGetHistory(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"data key", `{"status":200,"data":[{"sos_id":1,"name":"A"},{"sos_id":2,"name":"B"}]}`, 2},
		{"legacy key", `{"status":200,"sasData":[{"sos_id":"x","name":"A"}]}`, 1},
		{"not found", `{"status":404}`, 0},
		{"empty", `{"status":200}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "H1", r.URL.Query().Get("hospital_id"))
				w.Write([]byte(tc.body))
			})
			rows, err := c.GetHistory(context.Background(), "H1")
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Len(t, rows, tc.want)
		})
	}
}

func TestInspectToken(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "hospital-H1",
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		s, err := tok.SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	info, err := InspectToken(sign(now.Add(time.Hour)), now)
	require.NoError(t, err)
	assert.Equal(t, "hospital-H1", info.Subject)
	assert.True(t, info.ExpiresAt.Equal(now.Add(time.Hour)))

	_, err = InspectToken(sign(now.Add(-time.Hour)), now)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = InspectToken("opaque-token", now)
	assert.Error(t, err)
}
