// Command seed populates a development database with fake collectors,
// posts, comments and votes.
package main

import (
	"context"
	"flag"
	"log"

	"collectorhub/internal/config"
	"collectorhub/internal/database"
	"collectorhub/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	comments := flag.Int("comments", 8, "Maximum comments per post")
	votes := flag.Int("votes", 20, "Maximum voters per post")
	maxDays := flag.Int("days", 30, "Spread post creation over this many days")
	shouldClean := flag.Bool("clean", true, "Clean generated data before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt for generated passwords")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Users:           *numUsers,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		VotesPerPost:    *votes,
		MaxDays:         *maxDays,
		SkipBcrypt:      *fast,
		Seed:            *seedValue,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d votes", summary.Users, summary.Posts, summary.Comments, summary.Votes)
	if !*fast {
		log.Printf("All generated users have the password: %s", seed.DefaultPassword)
	}
}
