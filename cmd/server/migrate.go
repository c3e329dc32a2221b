package main

import (
	"ai-chatbot-go/internal/config"
	"ai-chatbot-go/internal/migration"
	"ai-chatbot-go/pkg/database"
	"ai-chatbot-go/pkg/log"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update all database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Conf
		db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		if err := migration.AutoMigrate(db); err != nil {
			return err
		}
		log.Info("数据库迁移完成")
		return nil
	},
}

var migratePartsCmd = &cobra.Command{
	Use:   "migrate-parts",
	Short: "Convert legacy plain-text messages and votes into the parts format",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Conf
		db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		if err := migration.AutoMigrate(db); err != nil {
			return err
		}
		stats, err := migration.MigrateParts(cmd.Context(), db)
		if err != nil {
			log.Error("Script failed", err)
			return err
		}
		log.Infow("Script completed successfully", "chats", stats.Chats, "messages", stats.Messages, "votes", stats.Votes)
		return nil
	},
}
