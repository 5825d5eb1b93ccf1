package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"instrevi/database"
	"instrevi/feed"
	"instrevi/logging"
	"instrevi/models"
)

// mongoFeedSource feeds the aggregator from the posts collection: the full
// set sorted by createdAt descending, authors and comment authors resolved
// in one batched users query. Deleted users just never make it into the map,
// which leaves the corresponding User fields nil for the aggregator to drop.
type mongoFeedSource struct{}

func (mongoFeedSource) Posts(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := database.Posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for _, p := range posts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
		for _, cm := range p.Comments {
			if !seen[cm.UserID] {
				seen[cm.UserID] = true
				ids = append(ids, cm.UserID)
			}
		}
	}

	summaries, err := loadUserSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		p := &posts[i]
		if s, ok := summaries[p.UserID]; ok {
			summary := s
			p.User = &summary
		}
		for j := range p.Comments {
			if s, ok := summaries[p.Comments[j].UserID]; ok {
				summary := s
				p.Comments[j].User = &summary
			}
		}
	}
	return posts, nil
}

// GetPosts serves the home feed with review rollups applied.
func GetPosts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	posts, err := feed.Build(ctx, mongoFeedSource{})
	if err != nil {
		logging.Log.Errorf("GetPosts: %v", err)
		serverError(c)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	c.JSON(http.StatusOK, posts)
}

func CreatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to parse form data"})
		return
	}

	postType := c.PostForm("postType")
	if postType == "" {
		postType = models.PostTypeGeneral
	}
	if !models.ValidPostType(postType) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid post type"})
		return
	}

	title := c.PostForm("title")
	if len(title) > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Title too long"})
		return
	}
	category := c.PostForm("category")
	if category != "" && !models.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid category"})
		return
	}
	caption := c.PostForm("caption")
	if len(caption) > 2200 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Caption too long"})
		return
	}

	// A single "image" file or up to ten "images"
	form := c.Request.MultipartForm
	files := form.File["image"]
	if len(files) == 0 {
		files = form.File["images"]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "At least one image is required"})
		return
	}
	if len(files) > 10 {
		files = files[:10]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	postID := primitive.NewObjectID()
	var uploaded []string
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read uploaded image"})
			return
		}
		url, err := uploadImage(ctx, f, "instrevi/posts", postID.Hex()+"_"+strconv.Itoa(i))
		f.Close()
		if err != nil {
			logging.Log.Errorf("CreatePost upload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload images"})
			return
		}
		uploaded = append(uploaded, url)
	}

	now := time.Now()
	post := models.Post{
		ID:        postID,
		PostType:  postType,
		Caption:   caption,
		Image:     uploaded[0],
		UserID:    userID,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if title != "" {
		post.Title = &title
	}
	if category != "" {
		post.Category = &category
	}
	if len(uploaded) > 1 {
		post.Images = uploaded
	}

	if postType == models.PostTypeReview {
		if ratingStr := c.PostForm("rating"); ratingStr != "" {
			rating, err := strconv.Atoi(ratingStr)
			if err != nil || rating < 1 || rating > 5 {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Rating must be between 1 and 5"})
				return
			}
			post.Rating = &rating
		}
		if statsStr := c.PostForm("stats"); statsStr != "" {
			var stats []models.Stat
			if err := json.Unmarshal([]byte(statsStr), &stats); err != nil {
				logging.Log.Warnf("CreatePost: unparseable stats: %v", err)
			} else {
				post.Stats = stats
			}
		}
	}

	if _, err := database.Posts.InsertOne(ctx, post); err != nil {
		logging.Log.Errorf("CreatePost insert: %v", err)
		serverError(c)
		return
	}

	if _, err := database.Users.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$push": bson.M{"posts": post.ID}}); err != nil {
		logging.Log.Warnf("CreatePost: failed to link post to user: %v", err)
	}

	summaries, err := loadUserSummaries(ctx, []primitive.ObjectID{userID})
	if err == nil {
		if s, ok := summaries[userID]; ok {
			post.User = &s
		}
	}

	broadcast("post.created", gin.H{"postId": post.ID.Hex(), "postType": post.PostType})

	c.JSON(http.StatusCreated, post)
}

func LikePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid post ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return
	}
	if err != nil {
		serverError(c)
		return
	}

	liked := false
	for _, id := range post.Likes {
		if id == userID {
			liked = true
			break
		}
	}

	update := bson.M{"$addToSet": bson.M{"likes": userID}}
	likesCount := len(post.Likes) + 1
	if liked {
		update = bson.M{"$pull": bson.M{"likes": userID}}
		likesCount = len(post.Likes) - 1
	}

	if _, err := database.Posts.UpdateOne(ctx, bson.M{"_id": postID}, update); err != nil {
		serverError(c)
		return
	}

	if !liked && post.UserID != userID {
		go notifyUser(post.UserID, "New like", "Someone liked your post")
		broadcast("post.liked", gin.H{"postId": postID.Hex(), "likesCount": likesCount})
	}

	c.JSON(http.StatusOK, gin.H{"liked": !liked, "likesCount": likesCount})
}

func AddComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid post ID"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return
	}
	if err != nil {
		serverError(c)
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Text:      req.Text,
		CreatedAt: time.Now(),
	}

	if _, err := database.Posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": comment}}); err != nil {
		serverError(c)
		return
	}

	summaries, err := loadUserSummaries(ctx, []primitive.ObjectID{userID})
	if err == nil {
		if s, ok := summaries[userID]; ok {
			comment.User = &s
		}
	}

	if post.UserID != userID {
		go notifyUser(post.UserID, "New comment", "Someone commented on your post")
		broadcast("comment.added", gin.H{"postId": postID.Hex()})
	}

	c.JSON(http.StatusCreated, comment)
}
