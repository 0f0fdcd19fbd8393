package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/bustrust/bustrust/app/bus-collector/collector"
	"github.com/bustrust/bustrust/business/data/bustime"
	"github.com/bustrust/bustrust/foundation/database"
	"github.com/bustrust/bustrust/foundation/httpclient"
	"github.com/bustrust/bustrust/foundation/objectstore"
	"github.com/jmoiron/sqlx"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "BUS_COLLECTOR : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {

	// a .env file may carry the api key and object store credentials
	if err := godotenv.Load(); err == nil {
		log.Println("main: loaded environment from .env file")
	}

	var cfg struct {
		conf.Version
		Args conf.Args
		API  struct {
			Key            string `conf:"required,noprint"`
			BaseURL        string `conf:"default:https://www.ctabustracker.com/bustime/api/v3"`
			TimeoutSeconds int    `conf:"default:30"`
			GroupSize      int    `conf:"default:10"`
		}
		Run struct {
			RuntimeHours      float64 `conf:"default:1.0"`
			GroupSleepSeconds int     `conf:"default:5"`
			SweepSleepSeconds int     `conf:"default:30"`
		}
		Chunk struct {
			Hours  float64 `conf:"default:6"`
			OutDir string  `conf:"default:data"`
			Policy string  `conf:"default:retain"`
		}
		S3 struct {
			Endpoint      string `conf:"default:s3.amazonaws.com"`
			AccessKey     string
			SecretKey     string `conf:"noprint"`
			Bucket        string `conf:"default:bustrust"`
			UseSSL        bool   `conf:"default:true"`
			DisableUpload bool   `conf:"default:false"`
		}
		NATS struct {
			URL             string `conf:"default:nats://127.0.0.1:4222"`
			Subject         string `conf:"default:bus-observations"`
			PublishOverNats bool   `conf:"default:false"`
		}
		DB struct {
			User             string `conf:"default:postgres"`
			Password         string `conf:"default:postgres,noprint"`
			Host             string `conf:"default:0.0.0.0"`
			Name             string `conf:"default:postgres"`
			DisableTLS       bool   `conf:"default:true"`
			RecordToDatabase bool   `conf:"default:false"`
		}
		Web struct {
			StatusPort int `conf:"default:8181"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Collect vehicle locations into chunked csv files and upload them"
	const prefix = "COLLECTOR"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	chunkPolicy, err := collector.ParseChunkPolicy(cfg.Chunk.Policy)
	if err != nil {
		return fmt.Errorf("parsing chunk policy: %w", err)
	}

	// =========================================================================
	// Start object store

	var store *objectstore.Store
	if !cfg.S3.DisableUpload {
		log.Println("main: Initializing object store support")
		store, err = objectstore.Open(objectstore.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("connecting to object store: %w", err)
		}
	}

	// =========================================================================
	// Start database, only needed when observations are recorded to it

	var db *sqlx.DB
	if cfg.DB.RecordToDatabase {
		log.Println("main: Initializing database support")
		db, err = database.Open(database.Config{
			User:       cfg.DB.User,
			Password:   cfg.DB.Password,
			Host:       cfg.DB.Host,
			Name:       cfg.DB.Name,
			DisableTLS: cfg.DB.DisableTLS,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Printf("main: Database Stopping : %s", cfg.DB.Host)
			err = db.Close()
			if err != nil {
				log.Printf("main: error closing database: %v", err)
			}
		}()
	}

	// =========================================================================
	// Start NATS, only needed when observations are published

	var natsConnection *nats.Conn
	if cfg.NATS.PublishOverNats {
		log.Println("main: Initializing NATS support")
		natsConnection, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connecting to nats at %s: %w", cfg.NATS.URL, err)
		}
		defer natsConnection.Close()
	}

	client := bustime.NewClient(log,
		httpclient.New(time.Duration(cfg.API.TimeoutSeconds)*time.Second),
		cfg.API.BaseURL, cfg.API.Key)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	return collector.RunCollectorLoop(log, client, store, db, natsConnection, collector.Config{
		GroupSize:        cfg.API.GroupSize,
		Runtime:          time.Duration(cfg.Run.RuntimeHours * float64(time.Hour)),
		GroupSleep:       time.Duration(cfg.Run.GroupSleepSeconds) * time.Second,
		SweepSleep:       time.Duration(cfg.Run.SweepSleepSeconds) * time.Second,
		ChunkDuration:    time.Duration(cfg.Chunk.Hours * float64(time.Hour)),
		ChunkPolicy:      chunkPolicy,
		OutDir:           cfg.Chunk.OutDir,
		DisableUpload:    cfg.S3.DisableUpload,
		NatsSubject:      cfg.NATS.Subject,
		PublishOverNats:  cfg.NATS.PublishOverNats,
		RecordToDatabase: cfg.DB.RecordToDatabase,
		StatusPort:       cfg.Web.StatusPort,
	}, shutdown)
}
