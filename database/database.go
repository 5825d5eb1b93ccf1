package database

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"instrevi/logging"
)

var Client *mongo.Client
var Users *mongo.Collection
var Posts *mongo.Collection
var PushSubs *mongo.Collection

func ConnectMongo() error {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		logging.Log.Warn("MONGODB_URI not set, using default localhost")
		uri = "mongodb://127.0.0.1:27017/instrevi"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	if err := Client.Ping(ctx, nil); err != nil {
		return err
	}

	db := Client.Database("instrevi")
	Users = db.Collection("users")
	Posts = db.Collection("posts")
	PushSubs = db.Collection("push_subscriptions")

	logging.Log.Info("Connected to MongoDB")
	return nil
}

func DisconnectMongo() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Client.Disconnect(ctx); err != nil {
		return err
	}

	logging.Log.Info("Disconnected from MongoDB")
	return nil
}
