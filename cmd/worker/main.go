package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/config"
	"github.com/suPer8Hu/ai-assistant/internal/db"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
	"github.com/suPer8Hu/ai-assistant/internal/store/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for the worker")
	}

	// the worker shares conversations with the server, so it needs the database
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("database", "err", err)
	}
	store := storage.NewGormStore(gdb)
	defer store.Close()

	titler := chat.NewTitler(store)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel", "err", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareQueues(ch, cfg.RabbitQueue); err != nil {
		log.Fatal("queue declare", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := rabbitmq.NewConsumer(ch, cfg.RabbitQueue, cfg.WorkerConcurrency)
	err = consumer.Run(ctx, func(ctx context.Context, ev chat.TurnEvent) error {
		renamed, err := titler.Handle(ctx, ev)
		if errors.Is(err, common.ErrNotFound) {
			log.Warn("turn event for missing conversation", "conversation_id", ev.ConversationID)
			return nil
		}
		if renamed {
			log.Info("conversation titled", "conversation_id", ev.ConversationID)
		}
		return err
	})
	if err != nil {
		log.Error("worker stopped", "err", err)
	}
}
