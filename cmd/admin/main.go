package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"duocall/backend/internal/api/handler"
	"duocall/backend/internal/rooms"
	"duocall/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const tokenTTL = 5 * time.Minute

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  token                 print a signed admin token")
	fmt.Println("  allocate-code         ask the server for a free room code")
	fmt.Println("  stats                 print live room counts")
	fmt.Println("  expire-room <code>    end a live room now")
	fmt.Println("  archive <session_id>  print an archived room record (needs PG_DSN)")
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	secret := os.Getenv("ADMIN_SECRET")
	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	switch command := os.Args[1]; command {
	case "token":
		tok, err := handler.GenerateAdminToken(secret, tokenTTL)
		if err != nil {
			log.Fatalf("Error creating token: %v", err)
		}
		fmt.Println(tok)
	case "allocate-code":
		if err := call(http.MethodGet, serverURL+"/admin/allocate-code", secret); err != nil {
			log.Fatalf("Error allocating code: %v", err)
		}
	case "stats":
		if err := call(http.MethodGet, serverURL+"/admin/stats", secret); err != nil {
			log.Fatalf("Error reading stats: %v", err)
		}
	case "expire-room":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin expire-room <code>")
			os.Exit(1)
		}
		code := os.Args[2]
		if !rooms.ValidCode(code) {
			fmt.Println("Invalid code. Please provide exactly 4 digits.")
			os.Exit(1)
		}
		if err := call(http.MethodPost, serverURL+"/admin/rooms/"+code+"/expire", secret); err != nil {
			log.Fatalf("Error expiring room: %v", err)
		}
	case "archive":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin archive <session_id>")
			os.Exit(1)
		}
		if err := printArchive(os.Getenv("PG_DSN"), os.Args[2]); err != nil {
			log.Fatalf("Error reading archive: %v", err)
		}
	default:
		fmt.Printf("Unknown command %q\n", command)
		usage()
		os.Exit(1)
	}
}

// call hits an admin endpoint with a short-lived token and prints the body.
func call(method, url, secret string) error {
	tok, err := handler.GenerateAdminToken(secret, tokenTTL)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, body)
	}
	fmt.Println(string(body))
	return nil
}

func printArchive(dsn, sessionID string) error {
	if dsn == "" {
		return fmt.Errorf("PG_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	var s storage.Storage = storage.NewStorageService(db)

	rec, err := s.GetRoomRecord(sessionID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
