// Command seed merges the built-in families and optionally fills them with
// demo data.
package main

import (
	"flag"
	"log"

	"faithfulcity/internal/config"
	"faithfulcity/internal/database"
	"faithfulcity/internal/seed"
)

func main() {
	demo := flag.Bool("demo", false, "Generate demo members, posts and notifications")
	members := flag.Int("members", 6, "Members per family")
	posts := flag.Int("posts", 12, "Posts per family")
	notifications := flag.Int("notifications", 5, "Notifications per family")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible demo data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Families(db); err != nil {
		log.Fatalf("Built-in family seeding failed: %v", err)
	}
	log.Println("Built-in families merged")

	if !*demo {
		return
	}

	summary, err := seed.Demo(db, seed.DemoOptions{
		MembersPerFamily:       *members,
		PostsPerFamily:         *posts,
		NotificationsPerFamily: *notifications,
		Seed:                   *randSeed,
	})
	if err != nil {
		log.Fatalf("Demo seeding failed: %v", err)
	}
	log.Printf("Created %d members, %d posts, %d comments, %d notifications",
		summary.Members, summary.Posts, summary.Comments, summary.Notifications)
	log.Printf("All demo members use the password: %s", seed.DefaultDemoPassword)
}
