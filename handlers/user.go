package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"instrevi/database"
	"instrevi/logging"
	"instrevi/models"
)

// GetUser returns a public profile with follower/following summaries and the
// user's posts, newest first.
func GetUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		serverError(c)
		return
	}

	related := append(append([]primitive.ObjectID{}, user.Followers...), user.Following...)
	summaries, err := loadUserSummaries(ctx, related)
	if err != nil {
		serverError(c)
		return
	}

	followers := make([]models.UserSummary, 0, len(user.Followers))
	for _, id := range user.Followers {
		if s, ok := summaries[id]; ok {
			followers = append(followers, s)
		}
	}
	following := make([]models.UserSummary, 0, len(user.Following))
	for _, id := range user.Following {
		if s, ok := summaries[id]; ok {
			following = append(following, s)
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := database.Posts.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		serverError(c)
		return
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		serverError(c)
		return
	}
	summary := user.Summary()
	for i := range posts {
		posts[i].User = &summary
	}
	if posts == nil {
		posts = []models.Post{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":             user.ID.Hex(),
			"username":       user.Username,
			"email":          user.Email,
			"profilePicture": user.ProfilePicture,
			"bio":            user.Bio,
			"followers":      followers,
			"following":      following,
			"followersCount": len(user.Followers),
			"followingCount": len(user.Following),
		},
		"posts": posts,
	})
}

// FollowUser toggles the follow relation between the caller and :userId.
func FollowUser(c *gin.Context) {
	currentID, ok := currentUserID(c)
	if !ok {
		return
	}

	targetID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}
	if targetID == currentID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot follow yourself"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var target models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": targetID}).Decode(&target)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	if err != nil {
		serverError(c)
		return
	}

	var current models.User
	if err := database.Users.FindOne(ctx, bson.M{"_id": currentID}).Decode(&current); err != nil {
		serverError(c)
		return
	}

	isFollowing := false
	for _, id := range current.Following {
		if id == targetID {
			isFollowing = true
			break
		}
	}

	followersCount := len(target.Followers)
	if isFollowing {
		_, err = database.Users.UpdateOne(ctx, bson.M{"_id": currentID},
			bson.M{"$pull": bson.M{"following": targetID}})
		if err == nil {
			_, err = database.Users.UpdateOne(ctx, bson.M{"_id": targetID},
				bson.M{"$pull": bson.M{"followers": currentID}})
		}
		followersCount--
	} else {
		_, err = database.Users.UpdateOne(ctx, bson.M{"_id": currentID},
			bson.M{"$addToSet": bson.M{"following": targetID}})
		if err == nil {
			_, err = database.Users.UpdateOne(ctx, bson.M{"_id": targetID},
				bson.M{"$addToSet": bson.M{"followers": currentID}})
		}
		followersCount++
	}
	if err != nil {
		serverError(c)
		return
	}

	if !isFollowing {
		go notifyUser(targetID, "New follower", current.Username+" started following you")
		broadcast("user.followed", gin.H{"userId": targetID.Hex()})
	}

	c.JSON(http.StatusOK, gin.H{
		"following":      !isFollowing,
		"followersCount": followersCount,
	})
}

type UpdateProfileRequest struct {
	Username       string  `json:"username" form:"username"`
	Bio            *string `json:"bio" form:"bio"`
	ProfilePicture string  `json:"profilePicture" form:"profilePicture"`
}

// UpdateProfile updates the caller's username, bio and profile picture. With
// a multipart body, an "avatar" file is uploaded to Cloudinary and its URL
// replaces the profile picture.
func UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req UpdateProfileRequest
	if c.ContentType() == "application/json" {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON data"})
			return
		}
	} else {
		if err := c.Request.ParseMultipartForm(10 << 20); err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to parse form data"})
			return
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form data"})
			return
		}
	}

	set := bson.M{}
	if req.Username != "" {
		if len(req.Username) < 3 || len(req.Username) > 30 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Username must be 3-30 characters"})
			return
		}
		set["username"] = req.Username
	}
	if req.Bio != nil {
		if len(*req.Bio) > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Bio too long"})
			return
		}
		set["bio"] = *req.Bio
	}
	if req.ProfilePicture != "" {
		set["profilePicture"] = req.ProfilePicture
	}

	if avatarFile, _, err := c.Request.FormFile("avatar"); err == nil {
		defer avatarFile.Close()
		url, err := uploadImage(ctx, avatarFile, "instrevi/avatars", userID.Hex())
		if err != nil {
			logging.Log.Errorf("UpdateProfile avatar upload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload avatar"})
			return
		}
		set["profilePicture"] = url
	}

	if len(set) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No changes to update"})
		return
	}
	set["updatedAt"] = time.Now()

	res, err := database.Users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		serverError(c)
		return
	}
	if res.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	var user models.User
	if err := database.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		serverError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             user.ID.Hex(),
		"username":       user.Username,
		"email":          user.Email,
		"profilePicture": user.ProfilePicture,
		"bio":            user.Bio,
	})
}
