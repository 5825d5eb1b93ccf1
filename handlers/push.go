package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"instrevi/database"
	"instrevi/logging"
)

type pushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}

func GetVapidPublicKey(c *gin.Context) {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	if publicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"message": "Push notifications not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

func SubscribePush(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := pushSubscription{
		UserID: userID,
		Sub: webpush.Subscription{
			Endpoint: req.Endpoint,
			Keys: webpush.Keys{
				P256dh: req.Keys.P256dh,
				Auth:   req.Keys.Auth,
			},
		},
	}

	// One document per endpoint; re-subscribing refreshes ownership and keys
	_, err := database.PushSubs.UpdateOne(ctx,
		bson.M{"sub.endpoint": req.Endpoint},
		bson.M{"$set": bson.M{"userId": sub.UserID, "sub": sub.Sub}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})
}

// notifyUser sends a best-effort web push to every subscription a user has
// registered. Failures are logged, stale subscriptions are removed.
func notifyUser(userID primitive.ObjectID, title, body string) {
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	if privateKey == "" || publicKey == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := database.PushSubs.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		logging.Log.Warnf("notifyUser: failed to load subscriptions: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var subs []pushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		logging.Log.Warnf("notifyUser: failed to decode subscriptions: %v", err)
		return
	}

	payload, _ := json.Marshal(gin.H{"title": title, "body": body})

	for _, sub := range subs {
		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             60,
		})
		if err != nil {
			logging.Log.Warnf("notifyUser: push failed: %v", err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			database.PushSubs.DeleteOne(ctx, bson.M{"_id": sub.ID})
		}
		resp.Body.Close()
	}
}
