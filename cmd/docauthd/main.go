// Command docauthd runs the doctor directory auth service as a standalone
// HTTP server backed by a SQLite database.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/samddir/docauth"
	"github.com/samddir/docauth/notify"
	gormstore "github.com/samddir/docauth/stores/gorm"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("DOCAUTH")
	v.AutomaticEnv()
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "docauth.db")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("smtp_port", 587)

	db, err := gorm.Open(sqlite.Open(v.GetString("db_path")), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	accounts, err := gormstore.NewAccountStore(db)
	if err != nil {
		log.Fatalf("Failed to init account store: %v", err)
	}
	challenges, err := gormstore.NewChallengeStore(db)
	if err != nil {
		log.Fatalf("Failed to init challenge store: %v", err)
	}

	config := &docauth.Config{
		JWTSecretKey:   v.GetString("jwt_secret"),
		BaseURL:        v.GetString("base_url"),
		GoogleClientID: v.GetString("google_client_id"),
	}

	svc := docauth.NewService(accounts, challenges, buildNotifier(v), config)
	go purgeLoop(challenges)

	log.Printf("docauthd listening on %s", v.GetString("addr"))
	if err := http.ListenAndServe(v.GetString("addr"), svc.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildNotifier wires the production gateway when credentials are present,
// falling back to console logging for local development.
func buildNotifier(v *viper.Viper) docauth.Notifier {
	apiKey := v.GetString("mtalkz_api_key")
	smtpHost := v.GetString("smtp_host")
	if apiKey == "" && smtpHost == "" {
		log.Println("No delivery credentials configured, logging secrets to console")
		return docauth.ConsoleNotifier{}
	}

	gateway := &notify.Gateway{}
	if apiKey != "" {
		gateway.SMS = notify.NewMTalkzClient(apiKey)
	}
	if smtpHost != "" {
		gateway.Email = &notify.SMTPSender{
			Host:     smtpHost,
			Port:     v.GetInt("smtp_port"),
			Username: v.GetString("smtp_username"),
			Password: v.GetString("smtp_password"),
			From:     v.GetString("smtp_from"),
		}
	}
	return gateway
}

// purgeLoop clears long-expired challenges once an hour
func purgeLoop(challenges *gormstore.ChallengeStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		n, err := challenges.PurgeExpired(context.Background(), time.Now().Add(-24*time.Hour))
		if err != nil {
			log.Printf("Challenge purge failed: %v", err)
		} else if n > 0 {
			log.Printf("Purged %d expired challenges", n)
		}
	}
}
