package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/mmdatafocus/bom_backend/bom"
	"github.com/mmdatafocus/bom_backend/config"
	"github.com/mmdatafocus/bom_backend/models"
	"github.com/mmdatafocus/bom_backend/utils"
	"github.com/mmdatafocus/bom_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	maxOutstanding := flag.Int("max-outstanding", 10, "Number of composite sale messages processed concurrently")
	dryRun := flag.Bool("dry-run", false, "Resolve sales and log depletion requests without publishing")
	migrate := flag.Bool("migrate", true, "Run schema migration on start")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if *migrate {
		models.MigrateTable()
	}
	config.ConnectRedisWithRetry()

	if err := run(ctx, *maxOutstanding, *dryRun); err != nil {
		config.LogError(config.GetLogger(), "bom-sale-worker", "main", "run", nil, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, maxOutstanding int, dryRun bool) error {
	logger := config.GetLogger()
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(ctx, client, config.BomSaleTopic())
	if err != nil {
		return err
	}
	if _, err := config.CreateTopicIfNotExists(ctx, client, config.BomDepletionTopic()); err != nil {
		return err
	}
	sub, err := config.CreateSubscriptionIfNotExists(ctx, client, config.BomSaleSubscription(), topic)
	if err != nil {
		return err
	}
	sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding

	publish := workflow.DepletionPublisher(workflow.PublishStockDepletion)
	if dryRun {
		publish = func(_ context.Context, req *workflow.StockDepletionRequest) (string, error) {
			logger.WithFields(logrus.Fields{
				"field":       "BomSaleWorker",
				"business_id": req.BusinessId,
				"reference":   req.Reference,
				"lines":       req.Lines,
			}).Info("dry run: depletion not published")
			return "", nil
		}
	}

	callback := func(ctx context.Context, msg *pubsub.Message) {
		m := config.PubSubMessage{}
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			config.LogError(logger, "bom-sale-worker", "run", "Unmarshaling pubsub message", string(msg.Data), err)
			// redelivery cannot fix a malformed payload
			msg.Ack()
			return
		}
		if m.CorrelationId == "" {
			m.CorrelationId = uuid.NewString()
		}
		ctx = utils.SetBusinessIdInContext(ctx, m.BusinessId)
		ctx = utils.SetCorrelationIdInContext(ctx, m.CorrelationId)

		err := handle(ctx, logger, msg.ID, m, publish)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"field":          "BomSaleWorker",
				"business_id":    m.BusinessId,
				"reference_type": m.ReferenceType,
				"reference_id":   m.ReferenceId,
				"message_id":     msg.ID,
				"correlation_id": m.CorrelationId,
			}).Error("pubsub processing failed: " + err.Error())
			msg.Nack()
			return
		}
		msg.Ack()
	}

	logger.WithField("subscription", config.BomSaleSubscription()).Info("bom sale worker started")
	return sub.Receive(ctx, callback)
}

func handle(ctx context.Context, logger *logrus.Logger, messageId string, m config.PubSubMessage, publish workflow.DepletionPublisher) error {
	if m.BusinessId == "" {
		return bom.ErrMissingBusiness
	}
	converter, err := models.LoadUnitConverter(ctx, m.BusinessId)
	if err != nil {
		return err
	}
	store := models.NewCatalogStore()
	resolver, err := bom.NewResolver(bom.ResolverDeps{
		Catalog: models.NewCachedCatalog(store),
		Stock:   store,
		Units:   converter,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	return workflow.HandleCompositeSaleMessage(ctx, logger, resolver, messageId, m, publish)
}
