package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"instrevi/database"
	"instrevi/models"
	"instrevi/realtime"
)

var hub *realtime.Hub

// SetHub wires the websocket hub so handlers can broadcast feed events.
func SetHub(h *realtime.Hub) {
	hub = h
}

func broadcast(eventType string, payload interface{}) {
	if hub != nil {
		hub.Broadcast(eventType, payload)
	}
}

// serverError is the opaque 500 every store/upstream failure maps to.
func serverError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
}

// uploadImage pushes one uploaded file to Cloudinary and returns its secure URL.
func uploadImage(ctx context.Context, file multipart.File, folder, publicID string) (string, error) {
	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	res, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicID,
		Transformation: "c_limit,w_1080,h_1080,q_auto",
	})
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

// loadUserSummaries resolves a set of user ids to summaries in one query.
// Ids of deleted users are simply absent from the result map.
func loadUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	summaries := make(map[primitive.ObjectID]models.UserSummary)
	if len(ids) == 0 {
		return summaries, nil
	}

	cursor, err := database.Users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		summaries[u.ID] = u.Summary()
	}
	return summaries, nil
}

func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}
