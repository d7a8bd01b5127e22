package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"roundbets/cmd"
	"roundbets/config"
	"roundbets/database"
	"roundbets/events"
	"roundbets/models"
	"roundbets/repository"
	"roundbets/service"
	"roundbets/session"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env file")
	}

	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "migrate":
			err = handleMigrationCommand(os.Args[2:])
		case "session":
			err = handleSessionCommand(os.Args[2:])
		case "reconcile":
			err = handleReconcileCommand(os.Args[2:])
		default:
			err = fmt.Errorf("unknown command: %s", os.Args[1])
		}
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roundbets migrate [up|down|status] [steps]")
	}

	cfg := config.Get()
	cmd.ConfigureLogging(cfg)
	url := cfg.GetDatabaseURL()

	switch args[0] {
	case "up":
		return database.MigrateUp(url)
	case "down":
		steps := 1
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[1])
			}
			steps = parsed
		}
		return database.MigrateDown(url, steps)
	case "status":
		status, err := database.MigrateStatus(url)
		if err != nil {
			return err
		}
		if !status.Applied {
			fmt.Println("No migrations applied")
			return nil
		}
		fmt.Printf("Version: %d\nDirty: %t\n", status.Version, status.Dirty)
		return nil
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

// handleSessionCommand signs an identity in the way the external sign-in
// collaborator does and prints the session token
func handleSessionCommand(args []string) error {
	if len(args) < 2 || args[0] != "create" {
		return fmt.Errorf("usage: roundbets session create <email> [name]")
	}
	identity := models.Identity{Email: args[1]}
	if len(args) > 2 {
		identity.Name = args[2]
	}

	ctx := context.Background()
	cfg := config.Get()
	cmd.ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := session.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// No sinks are attached here, so events raised by the grant stay local
	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewBus())
	users := service.NewUserService(uowFactory, cfg.StartingCredits)

	token, user, err := session.NewStore(redisClient, cfg.SessionTTL).SignIn(ctx, users, identity)
	if err != nil {
		return err
	}

	fmt.Printf("User: %s (%s), credits %d\nToken: %s\n", user.Name, user.ID, user.Credits, token)
	return nil
}

func handleReconcileCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: roundbets reconcile <user-id>")
	}

	ctx := context.Background()
	cfg := config.Get()
	cmd.ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	users := service.NewUserService(repository.NewUnitOfWorkFactory(db, events.NewBus()), cfg.StartingCredits)
	rec, err := users.ReconcileUser(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Credits: %d\nGranted: %d\nPaid out: %d\nStaked: %d\nExpected: %d\nConsistent: %t\n",
		rec.Credits, rec.Granted, rec.PaidOut, rec.Staked, rec.Expected, rec.IsConsistent)
	if !rec.IsConsistent {
		return fmt.Errorf("credits for %s drifted by %d", rec.UserID, rec.Credits-rec.Expected)
	}
	return nil
}
