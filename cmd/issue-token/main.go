// Command issue-token signs a token with the service's JWT_SECRET. It is the
// only way to get an admin token; the HTTP issuer refuses that role.
package main

import (
	"flag"
	"fmt"
	"os"

	"rideshare/pkg/auth"
	"rideshare/pkg/config"
	"rideshare/pkg/logger"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token")
	roleName := flag.String("role", string(auth.RoleAdmin), "rider, driver or admin")
	envFile := flag.String("env", ".env", "config file to read JWT_SECRET and JWT_TTL from")
	flag.Parse()

	log := logger.NewLoggerWithWriter("issue-token", os.Stderr, logger.LevelInfo)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		flag.Usage()
		os.Exit(2)
	}
	role, err := auth.ParseRole(*roleName)
	if err != nil {
		log.Error("invalid_role", err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Error("config_load_failed", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL).GenerateToken(*userID, role)
	if err != nil {
		log.Error("generate_token_failed", err)
		os.Exit(1)
	}
	log.WithFields(logger.LogFields{"user_id": *userID, "role": string(role)}).Info("token_issued", "Token issued")
	fmt.Println(token)
}
