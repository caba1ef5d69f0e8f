// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package v1

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/json"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
	user    string
}

func (c *apiClient) do(method, url, body string, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+url, strings.NewReader(body))
	if c.user != "" {
		req.Header.Set("X-WEBAUTH-USER", c.user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	http.StripPrefix("/api/v1", c.handler).ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func prepareAPI(t *testing.T) (owner, other *apiClient) {
	unittest.PrepareTestEnv(t)
	for _, name := range []string{"owner", "other"} {
		require.NoError(t, user_model.CreateUser(db.DefaultContext, &user_model.User{Name: name, Email: name + "@example.com", IsActive: true}))
	}
	h := Routes()
	return &apiClient{t: t, handler: h, user: "owner"}, &apiClient{t: t, handler: h, user: "other"}
}

func TestAPIRequiresSignIn(t *testing.T) {
	owner, _ := prepareAPI(t)
	anonymous := &apiClient{t: t, handler: owner.handler}
	resp := anonymous.do(http.MethodPost, "/projects", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	unknown := &apiClient{t: t, handler: owner.handler, user: "nobody"}
	resp = unknown.do(http.MethodPost, "/projects", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAPIItemLifecycle(t *testing.T) {
	owner, other := prepareAPI(t)

	resp := owner.do(http.MethodPost, "/projects", `{"name":"Apollo","is_private":true}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	project := decode[api.Project](t, resp)
	assert.Equal(t, "apollo", project.Slug)
	base := fmt.Sprintf("/projects/%d", project.ID)

	// private projects are hidden from non members
	resp = other.do(http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = owner.do(http.MethodPost, base+"/userstory", `{"patch":{"subject":"Fuel"},"comment":"first"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decode[api.MutationResult](t, resp)
	assert.EqualValues(t, 1, created.Item.Version)
	assert.EqualValues(t, 1, created.Item.Fields["ref"])
	assert.Equal(t, `"1"`, resp.Header().Get("ETag"))
	itemURL := fmt.Sprintf("%s/userstory/%d", base, created.Item.ID)

	resp = owner.do(http.MethodPatch, itemURL, `{"version":1,"patch":{"subject":"Fuel up"}}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[api.MutationResult](t, resp)
	assert.EqualValues(t, 2, updated.Item.Version)
	require.NotNil(t, updated.HistoryEntry)
	assert.Equal(t, [2]any{"Fuel", "Fuel up"}, updated.HistoryEntry.Diff["subject"])

	// an edit of version 1 touching the subject again is refused
	resp = owner.do(http.MethodPatch, itemURL, `{"patch":{"subject":"Refuel"}}`, "If-Match", `"1"`)
	assert.Equal(t, http.StatusConflict, resp.Code)
	apiErr := decode[api.APIError](t, resp)
	assert.Equal(t, "STALE_OBJECT_ERROR", apiErr.Kind)
	assert.Equal(t, []string{"subject"}, apiErr.Fields)

	// a disjoint edit of version 1 goes through
	resp = owner.do(http.MethodPatch, itemURL, `{"version":1,"patch":{"description":"liquid"}}`)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = owner.do(http.MethodPatch, itemURL, `{"version":3,"patch":{"is_closed":true}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "READONLY_FIELD", decode[api.APIError](t, resp).Kind)

	resp = owner.do(http.MethodPatch, itemURL, `{"patch":{"subject":"no version"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = owner.do(http.MethodGet, itemURL+"/history", "")
	require.Equal(t, http.StatusOK, resp.Code)
	history := decode[[]*api.HistoryEntry](t, resp)
	require.Len(t, history, 3)
	assert.Equal(t, "create", history[0].Type)
	assert.Equal(t, "first", history[0].Comment)

	resp = owner.do(http.MethodGet, itemURL+"/watch", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[api.WatchInfo](t, resp).Subscribed)
	resp = owner.do(http.MethodDelete, itemURL+"/watch", "")
	require.Equal(t, http.StatusOK, resp.Code)
	resp = owner.do(http.MethodGet, itemURL+"/watch", "")
	assert.False(t, decode[api.WatchInfo](t, resp).Subscribed)

	resp = other.do(http.MethodDelete, itemURL, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "PERMISSION_DENIED", decode[api.APIError](t, resp).Kind)

	resp = owner.do(http.MethodDelete, itemURL, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = owner.do(http.MethodGet, itemURL, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = owner.do(http.MethodPost, base+"/refs/userstory", "")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.EqualValues(t, 2, decode[api.Ref](t, resp).Ref)

	resp = owner.do(http.MethodPost, base+"/sprint", `{"patch":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPIRoles(t *testing.T) {
	owner, other := prepareAPI(t)
	resp := owner.do(http.MethodPost, "/projects", `{"name":"Roles"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	base := fmt.Sprintf("/projects/%d", decode[api.Project](t, resp).ID)

	resp = owner.do(http.MethodPost, base+"/roles", `{"name":"QA","computable":true,"permissions":["view_us"]}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	role := decode[api.Role](t, resp)
	assert.Equal(t, "qa", role.Slug)

	resp = other.do(http.MethodPost, base+"/roles", `{"name":"Intruder"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = owner.do(http.MethodGet, base+"/roles", "")
	require.Equal(t, http.StatusOK, resp.Code)
	roles := decode[[]*api.Role](t, resp)
	assert.Equal(t, "QA", roles[len(roles)-1].Name)

	resp = owner.do(http.MethodDelete, fmt.Sprintf("%s/roles/%d", base, role.ID), "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = owner.do(http.MethodDelete, fmt.Sprintf("%s/roles/%d?move_to=%d", base, role.ID, roles[0].ID), "")
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
}

func TestAPIImport(t *testing.T) {
	owner, _ := prepareAPI(t)
	resp := owner.do(http.MethodPost, "/imports", `{"source":"file","project_key":"/etc/passwd"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = owner.do(http.MethodPost, "/imports", `{"source":"jira"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, []string{"project_key"}, decode[api.APIError](t, resp).Fields)

	resp = owner.do(http.MethodGet, "/imports/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = owner.do(http.MethodPost, "/projects", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[api.APIError](t, resp).Kind)
}
