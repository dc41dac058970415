package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freely/backend/internal/application/identity"
	domain "github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/interfaces/http/dto"
	"github.com/freely/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testPrincipal builds a signed-in caller
func testPrincipal() *identity.Principal {
	return &identity.Principal{
		User:      &domain.User{BaseAggregateRoot: shared.NewBaseAggregateRoot(), Email: "ada@example.com"},
		SessionID: uuid.New(),
	}
}

// testOrganization builds an active organization
func testOrganization(t *testing.T) *domain.Organization {
	t.Helper()
	org, err := domain.NewOrganization("Ada's Shop", "adas-shop")
	require.NoError(t, err)
	return org
}

// signedIn injects a principal the way RequireAuth does
func signedIn(p *identity.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, p)
		c.Next()
	}
}

// actingFor injects the active organization the way RequireOrganization does
func actingFor(org *domain.Organization) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.OrganizationKey, org)
		c.Next()
	}
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(mw...)
	return router
}

func doJSON(router http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeResponse unmarshals the envelope and re-decodes data into out
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if out != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.Success(c, map[string]string{"key": "value"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeResponse(t, w, nil).Success)
	})

	t.Run("success with meta", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.SuccessWithMeta(c, []string{"a", "b"}, 100, 2, 10)

		resp := decodeResponse(t, w, nil)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(100), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 10, resp.Meta.TotalPages)
	})

	t.Run("created", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.Created(c, map[string]string{"id": "123"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("no content", func(t *testing.T) {
		router := gin.New()
		router.DELETE("/x", func(c *gin.Context) { h.NoContent(c) })
		w := doJSON(router, http.MethodDelete, "/x", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name        string
		expose      bool
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"domain not found", false, domain.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
		{"legacy invalid input", false, shared.ErrInvalidInput, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid input provided"},
		{"forbidden", false, domain.ErrNotMember, http.StatusForbidden, dto.ErrCodeForbidden, "You are not a member of this organization"},
		{"unknown error hidden", false, errors.New("pq: connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal, "Internal server error"},
		{"unknown error exposed", true, errors.New("pq: connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal, "pq: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{ExposeErrorDetails: tt.expose}
			router := newTestRouter()
			router.GET("/x", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := doJSON(router, http.MethodGet, "/x", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w, nil)
			require.NotNil(t, resp.Error)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_BindJSON(t *testing.T) {
	h := &BaseHandler{}
	router := newTestRouter()
	router.POST("/x", func(c *gin.Context) {
		var req RegisterRequest
		if !h.BindJSON(c, &req) {
			return
		}
		h.Success(c, req.Email)
	})

	t.Run("validation details", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/x", map[string]string{"email": "nope", "password": "short"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w, nil)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"email", "password"}, fields)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/x", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w, nil).Error.Code)
	})
}

func TestBaseHandler_ParamUUID(t *testing.T) {
	h := &BaseHandler{}
	router := newTestRouter()
	router.GET("/items/:id", func(c *gin.Context) {
		id, ok := h.ParamUUID(c, "id")
		if !ok {
			return
		}
		h.Success(c, id.String())
	})

	assert.Equal(t, http.StatusOK, doJSON(router, http.MethodGet, "/items/6f1c2f0e-3b7a-4c7e-9d7e-0d5b8f0b1a2c", nil).Code)
	w := doJSON(router, http.MethodGet, "/items/42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id", decodeResponse(t, w, nil).Error.Message)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, shared.DefaultPageSize},
		{"?page=3&page_size=5", 3, 5},
		{"?page=0&page_size=1000", 1, shared.MaxPageSize},
		{"?page=abc", 1, shared.DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/orders"+tt.query, nil)

			f := pageParams(c)
			assert.Equal(t, tt.wantPage, f.Page)
			assert.Equal(t, tt.wantPageSize, f.PageSize)
		})
	}
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, ParseSameSite("strict"))
	assert.Equal(t, http.SameSiteNoneMode, ParseSameSite("none"))
	assert.Equal(t, http.SameSiteLaxMode, ParseSameSite("lax"))
	assert.Equal(t, http.SameSiteLaxMode, ParseSameSite(""))
}

func TestCookieConfig_CartIdentity(t *testing.T) {
	cookies := DefaultCookieConfig()
	principal := testPrincipal()

	run := func(create bool, setup func(r *http.Request), mw ...gin.HandlerFunc) (*httptest.ResponseRecorder, string) {
		var got string
		router := newTestRouter(mw...)
		router.GET("/cart", func(c *gin.Context) {
			identity, ok, err := cookies.CartIdentity(c, create)
			require.NoError(t, err)
			switch {
			case !ok:
				got = "none"
			case identity.IsUser():
				got = "user:" + identity.UserID.String()
			default:
				got = "session:" + identity.SessionToken
			}
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		setup(req)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w, got
	}

	t.Run("signed in user wins over cookie", func(t *testing.T) {
		_, got := run(true, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: cookies.CartName, Value: "anon"})
		}, signedIn(principal))
		assert.Equal(t, "user:"+principal.UserID().String(), got)
	})

	t.Run("existing cart cookie", func(t *testing.T) {
		w, got := run(true, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: cookies.CartName, Value: "anon"})
		})
		assert.Equal(t, "session:anon", got)
		assert.Nil(t, findCookie(w, cookies.CartName))
	})

	t.Run("issues a cookie when asked to", func(t *testing.T) {
		w, got := run(true, func(r *http.Request) {})
		ck := findCookie(w, cookies.CartName)
		require.NotNil(t, ck)
		assert.True(t, ck.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
		assert.Equal(t, int(cookies.CartTTL.Seconds()), ck.MaxAge)
		assert.Equal(t, "session:"+ck.Value, got)
		assert.Len(t, ck.Value, 43)
	})

	t.Run("no cart without create", func(t *testing.T) {
		w, got := run(false, func(r *http.Request) {})
		assert.Equal(t, "none", got)
		assert.Nil(t, findCookie(w, cookies.CartName))
	})
}
