package cmd

import (
	"context"
	"fmt"
	"time"

	"campushub/auth"
	"campushub/db"
	"campushub/models"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:        "seed",
		Usage:       "Seed the database with demo data",
		Description: `Inserts a handful of demo users, equipment listings, carpool trips and posts so the feed has content to rank.`,
		Flags:       dbFlags(),
		Action: func(ctx *cli.Context) error {
			answer, err := prompt.New().
				Ask(fmt.Sprintf("Seed demo data into %s:%d/%s?",
					ctx.String("db-host"), ctx.Int("db-port"), ctx.String("db-name"))).
				Choose([]string{"Yes", "No"})
			if err != nil {
				return err
			}
			if answer != "Yes" {
				fmt.Println("Aborted")
				return nil
			}

			database, err := db.NewDB(
				ctx.String("db-host"),
				ctx.Int("db-port"),
				ctx.String("db-user"),
				ctx.String("db-password"),
				ctx.String("db-name"),
			)
			if err != nil {
				return err
			}
			defer database.Close()

			return seed(ctx.Context, database)
		},
	}
}

func seed(ctx context.Context, database *db.DB) error {
	now := time.Now()

	hash, err := auth.HashPassword("changeme123")
	if err != nil {
		return err
	}

	users := []struct {
		email, firstName, lastName string
	}{
		{"ada@campus.test", "Ada", "Lovelace"},
		{"alan@campus.test", "Alan", "Turing"},
		{"grace@campus.test", "Grace", "Hopper"},
	}

	var userIds []int64
	for _, u := range users {
		id, err := database.CreateUser(ctx, u.email, hash, u.firstName, u.lastName)
		if err == db.ErrDuplicateEmail {
			fmt.Printf("User %s already exists, skipping\n", u.email)
			continue
		}
		if err != nil {
			return err
		}
		userIds = append(userIds, id)
	}

	if len(userIds) == 0 {
		fmt.Println("Nothing to seed, users already present")
		return nil
	}

	owner := userIds[0]
	if _, err := database.CreateEquipment(ctx, owner, "Cordless drill", "TOOLS", "18V drill with two batteries"); err != nil {
		return err
	}
	if _, err := database.CreateEquipment(ctx, owner, "4-person tent", "OUTDOORS", "Waterproof dome tent"); err != nil {
		return err
	}

	driver := userIds[len(userIds)-1]
	if _, err := database.CreateTrip(ctx, driver, "North campus", "Airport", now.Add(20*time.Hour), 3); err != nil {
		return err
	}
	if _, err := database.CreateTrip(ctx, driver, "Dorm B", "City center", now.Add(4*24*time.Hour), 2); err != nil {
		return err
	}

	tags := "welcome,orientation"
	if _, err := database.CreatePost(ctx, owner, "Welcome week schedule",
		"The full schedule for welcome week is now online.",
		models.CategoryAnnouncement, nil, &tags); err != nil {
		return err
	}
	if _, err := database.CreatePost(ctx, driver, "Best coffee near the library?",
		"Looking for recommendations within walking distance.",
		models.CategoryDiscussion, nil, nil); err != nil {
		return err
	}

	fmt.Println("Seeded demo data")
	return nil
}
