package server

import (
	"context"
	"encoding/json"
	"strings"

	"faithfulcity/internal/feed"
	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// feedFrame is one full snapshot of a family collection.
type feedFrame struct {
	Type     feed.Topic `json:"type"`
	FamilyID string     `json:"family_id"`
	Payload  any        `json:"payload"`
}

// FeedUpgrade admits a websocket upgrade for the caller's own family. The
// family comes from ?family=, defaulting to the caller's family.
func (s *Server) FeedUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	familyID := strings.TrimSpace(c.Query("family"))
	if familyID == "" {
		u, err := s.currentUser(c)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		familyID = u.FamilyID
	}
	if familyID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("family is required"))
	}
	if _, err := s.authorizeFamily(c, familyID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	c.Locals("familyID", familyID)
	return c.Next()
}

// FeedWebSocketHandler handles GET /api/ws/feed
// @Summary Live family feed
// @Description Websocket streaming {"type","family_id","payload"} frames. Each frame carries the full current posts or notifications list.
// @Tags feed
// @Param family query string false "Family ID, defaults to the caller's family"
// @Param token query string false "Bearer token for browsers"
// @Success 101
// @Failure 403 {object} models.ErrorResponse
// @Router /ws/feed [get]
func (s *Server) FeedWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, _ := conn.Locals("userID").(string)
		familyID, _ := conn.Locals("familyID").(string)

		client, err := s.hub.Register(uid, familyID, conn)
		if err != nil {
			middleware.Logger.Warn("feed websocket rejected", "user_id", uid, "family_id", familyID, "error", err)
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(middleware.WithFamily(s.shutdownCtx, familyID))
		posts := s.bridge.SubscribePosts(ctx, familyID)
		notifs := s.bridge.SubscribeNotifications(ctx, familyID)

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			client.WritePump()
		}()
		go forwardFeed(ctx, client, posts, notifs)

		middleware.Logger.Info("feed websocket connected", "user_id", uid, "family_id", familyID)
		client.ReadPump()

		// The peer is gone: stop the subscriptions before closing the send
		// buffer they write into.
		cancel()
		posts.Close()
		notifs.Close()
		client.CloseSend()
		<-writeDone
		middleware.Logger.Info("feed websocket disconnected", "user_id", uid, "family_id", familyID)
	})
}

// forwardFeed turns snapshots into frames until ctx ends or both
// subscriptions close.
func forwardFeed(
	ctx context.Context,
	client *notifications.Client,
	posts *feed.Subscription[models.Post],
	notifs *feed.Subscription[models.Notification],
) {
	postsC, notifsC := posts.C(), notifs.C()
	for postsC != nil || notifsC != nil {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-postsC:
			if !ok {
				postsC = nil
				continue
			}
			sendFrame(client, feed.TopicPosts, posts.FamilyID(), snapshot)
		case snapshot, ok := <-notifsC:
			if !ok {
				notifsC = nil
				continue
			}
			sendFrame(client, feed.TopicNotifications, notifs.FamilyID(), snapshot)
		}
	}
}

func sendFrame(client *notifications.Client, topic feed.Topic, familyID string, payload any) {
	frame, err := json.Marshal(feedFrame{Type: topic, FamilyID: familyID, Payload: payload})
	if err != nil {
		middleware.Logger.Error("feed frame encoding failed", "topic", topic, "family_id", familyID, "error", err)
		return
	}
	client.TrySend(frame)
}
