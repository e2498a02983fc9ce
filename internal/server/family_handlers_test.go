package server

import (
	"net/http"
	"testing"

	"faithfulcity/internal/cache"
	"faithfulcity/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFamilies(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "anna@example.com", "Anna", false)

	resp, body := env.request(t, http.MethodGet, "/api/families", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	families := decode[[]models.Family](t, body)
	require.Len(t, families, 3)

	ids := []string{families[0].ID, families[1].ID, families[2].ID}
	assert.ElementsMatch(t, []string{"doxa-portal", "rhema", "glory"}, ids)

	resp, body = env.request(t, http.MethodGet, "/api/families/rhema", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rhema", decode[models.Family](t, body).ID)

	resp, body = env.request(t, http.MethodGet, "/api/families/unknown", nil, session.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, body).Code)
}

func TestJoinFamily_CountsEveryJoin(t *testing.T) {
	env := newTestEnv(t)
	session := env.signup(t, "simeon@example.com", "Simeon", false)

	resp, body := env.request(t, http.MethodPost, "/api/families/glory/join", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1, decode[models.Family](t, body).MemberCount)

	resp, body = env.request(t, http.MethodPost, "/api/families/glory/join", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[models.Family](t, body).MemberCount, "joining twice counts twice")

	resp, body = env.request(t, http.MethodGet, "/api/users/me", nil, session.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "glory", decode[models.User](t, body).FamilyID)

	resp, _ = env.request(t, http.MethodPost, "/api/families/nowhere/join", nil, session.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJoinFamily_AdminSignupsRespectCap(t *testing.T) {
	env := newTestEnv(t)
	a1 := env.member(t, "a1@example.com", "rhema", true)
	env.member(t, "a2@example.com", "rhema", true)
	a3 := env.signup(t, "a3@example.com", "Third Admin", true)

	resp, body := env.request(t, http.MethodPost, "/api/families/rhema/join", nil, a3.Token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	assert.Equal(t, models.CodeAdminLimitExceeded, decode[models.ErrorResponse](t, body).Code)

	resp, body = env.request(t, http.MethodGet, "/api/families/rhema/admins", nil, a1.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, body), 2)

	// The refused admin has no family and cannot act on rhema.
	resp, _ = env.request(t, http.MethodPut, "/api/families/rhema", map[string]string{"name": "Mine"}, a3.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestJoinFamily_AdminRightsStayBehind(t *testing.T) {
	env := newTestEnv(t)
	lead := env.member(t, "lead@example.com", "rhema", true)
	mover := env.member(t, "mover@example.com", "rhema", true)

	// A member of one family cannot join another.
	resp, body := env.request(t, http.MethodPost, "/api/families/glory/join", nil, mover.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))

	resp, body = env.request(t, http.MethodDelete, "/api/families/rhema/members/"+mover.User.ID, nil, lead.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, models.RoleMember, decode[models.User](t, body).Role)

	resp, body = env.request(t, http.MethodPost, "/api/families/glory/join", nil, mover.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.request(t, http.MethodGet, "/api/families/glory/admins", nil, mover.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.User](t, body))

	resp, _ = env.request(t, http.MethodPut, "/api/families/glory", map[string]string{"name": "Taken"}, mover.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFamilyRoutes_RequireMembership(t *testing.T) {
	env := newTestEnv(t)
	outsider := env.member(t, "outsider@example.com", "glory", true)

	for _, path := range []string{
		"/api/families/rhema/members",
		"/api/families/rhema/admins",
		"/api/families/rhema/stats",
		"/api/families/rhema/posts",
		"/api/families/rhema/media",
		"/api/families/rhema/notifications",
	} {
		resp, body := env.request(t, http.MethodGet, path, nil, outsider.Token)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		assert.Equal(t, models.CodeForbidden, decode[models.ErrorResponse](t, body).Code, path)
	}

	// An admin of another family is not an admin here.
	resp, _ := env.request(t, http.MethodPut, "/api/families/rhema", map[string]string{"name": "Taken"}, outsider.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPromote_AdminCap(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "u1@example.com", "rhema", true)
	u2 := env.member(t, "u2@example.com", "rhema", false)
	u3 := env.member(t, "u3@example.com", "rhema", false)

	resp, body := env.request(t, http.MethodPost, "/api/families/rhema/members/"+u2.User.ID+"/promote", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, models.RoleAdmin, decode[models.User](t, body).Role)

	resp, body = env.request(t, http.MethodPost, "/api/families/rhema/members/"+u3.User.ID+"/promote", nil, admin.Token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeAdminLimitExceeded, decode[models.ErrorResponse](t, body).Code)

	resp, body = env.request(t, http.MethodGet, "/api/families/rhema/admins", nil, u3.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, body), 2)

	// Members cannot promote.
	resp, _ = env.request(t, http.MethodPost, "/api/families/rhema/members/"+u3.User.ID+"/promote", nil, u3.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDemoteAndRemove(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "lead@example.com", "doxa-portal", true)
	co := env.member(t, "co@example.com", "doxa-portal", true)
	outsider := env.member(t, "far@example.com", "glory", false)

	resp, body := env.request(t, http.MethodPost, "/api/families/doxa-portal/members/"+co.User.ID+"/demote", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, models.RoleMember, decode[models.User](t, body).Role)

	// Demoting a member is a no-op that still succeeds.
	resp, _ = env.request(t, http.MethodPost, "/api/families/doxa-portal/members/"+co.User.ID+"/demote", nil, admin.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Only members of this family can be targeted.
	resp, _ = env.request(t, http.MethodPost, "/api/families/doxa-portal/members/"+outsider.User.ID+"/demote", nil, admin.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.request(t, http.MethodDelete, "/api/families/doxa-portal/members/"+co.User.ID, nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	removed := decode[models.User](t, body)
	assert.Empty(t, removed.FamilyID)

	resp, body = env.request(t, http.MethodGet, "/api/families/doxa-portal", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[models.Family](t, body).MemberCount, "removal does not decrement the count")
}

func TestUpdateFamily(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "keeper@example.com", "glory", true)
	member := env.member(t, "sheep@example.com", "glory", false)

	resp, body := env.request(t, http.MethodPut, "/api/families/glory", map[string]string{
		"name":        "Glory <b>Family</b>",
		"description": "Gathering on Sundays",
	}, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	family := decode[models.Family](t, body)
	assert.Equal(t, "Glory Family", family.Name)
	assert.Equal(t, "Gathering on Sundays", family.Description)

	resp, _ = env.request(t, http.MethodPut, "/api/families/glory", map[string]string{}, admin.Token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPut, "/api/families/glory", map[string]string{"image_url": "javascript:alert(1)"}, admin.Token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPut, "/api/families/glory", map[string]string{"name": "Mine"}, member.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetFamilyStats(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "count@example.com", "rhema", true)
	env.member(t, "other@example.com", "rhema", false)

	resp, body := env.request(t, http.MethodPost, "/api/families/rhema/posts", map[string]string{
		"content": "Service moves to 10am", "type": "announcement",
	}, admin.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.request(t, http.MethodGet, "/api/families/rhema/stats", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	stats := decode[models.FamilyStats](t, body)
	assert.Equal(t, int64(2), stats.MemberCount)
	assert.Equal(t, int64(1), stats.AdminCount)
	assert.Equal(t, int64(1), stats.PostCount)
	assert.Equal(t, int64(1), stats.UnreadNotifications, "the announcement notified the family")
	require.Len(t, stats.RecentActivity, 1)
	assert.Equal(t, "Service moves to 10am", stats.RecentActivity[0].Content)
}

func TestGetFamilyStats_CachedInRedisUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	env := newTestEnvWithRedis(t, rdb)
	admin := env.member(t, "steward@example.com", "doxa-portal", true)

	resp, body := env.request(t, http.MethodGet, "/api/families/doxa-portal/stats", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	stats := decode[models.FamilyStats](t, body)
	assert.Zero(t, stats.PostCount)
	assert.Empty(t, stats.RecentActivity)
	assert.True(t, mr.Exists(cache.FamilyStatsKey("doxa-portal")))

	resp, body = env.request(t, http.MethodPost, "/api/families/doxa-portal/posts", map[string]string{
		"content": "Youth night this Friday",
	}, admin.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.False(t, mr.Exists(cache.FamilyStatsKey("doxa-portal")), "a new post drops the cached stats")

	resp, body = env.request(t, http.MethodGet, "/api/families/doxa-portal/stats", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	stats = decode[models.FamilyStats](t, body)
	assert.Equal(t, int64(1), stats.PostCount)
	require.Len(t, stats.RecentActivity, 1)
	assert.Equal(t, "Youth night this Friday", stats.RecentActivity[0].Content)
}
