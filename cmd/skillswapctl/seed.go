package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/skillswap/internal/adapters/cache"
	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/adapters/repository/mongostore"
	"github.com/okian/skillswap/internal/config"
)

func newSeedCmd() *cobra.Command {
	var (
		file      string
		mongoURI  string
		database  string
		dropFirst bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load skills and members from a YAML fixture into Mongo",
		Long: `Load skills and members from a YAML fixture into Mongo.

Connection settings come from the service configuration (SKILLSWAP_CONFIG and
SKILLSWAP_* variables) unless overridden by flags. When redis_addr is
configured the cached insights are invalidated after seeding.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if mongoURI != "" {
				cfg.MongoURI = mongoURI
			}
			if database != "" {
				cfg.MongoDatabase = database
			}
			if cfg.MongoURI == "" {
				return fmt.Errorf("no mongo uri: pass --mongo-uri or set SKILLSWAP_MONGO_URI")
			}

			fx, err := repository.LoadFixtures(file)
			if err != nil {
				return err
			}

			store, err := mongostore.Connect(ctx, mongostore.Config{
				URI:               cfg.MongoURI,
				Database:          cfg.MongoDatabase,
				SkillsCollection:  cfg.MongoSkillsCollection,
				MembersCollection: cfg.MongoMembersCollection,
				Timeout:           cfg.MongoTimeout(),
			})
			if err != nil {
				return err
			}
			defer store.Close()

			if dropFirst {
				if err := store.Drop(ctx); err != nil {
					return err
				}
			}
			if err := store.InitializeIndexes(ctx); err != nil {
				return err
			}
			if err := store.Seed(ctx, fx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d skills and %d members into %s\n",
				len(fx.Skills), len(fx.Members), cfg.MongoDatabase)

			if cfg.RedisAddr == "" {
				return nil
			}
			rc, err := cache.New(ctx, cache.Config{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err != nil {
				return err
			}
			defer rc.Close()
			if err := rc.Invalidate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "invalidated cached insights")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture file")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "Mongo connection string (default from config)")
	cmd.Flags().StringVar(&database, "database", "", "Mongo database (default from config)")
	cmd.Flags().BoolVar(&dropFirst, "drop", false, "drop both collections before seeding")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
