// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"name-smart-go/internal/config"
	"name-smart-go/internal/corpus"
	"name-smart-go/internal/handler"
	"name-smart-go/internal/middleware"
	"name-smart-go/internal/pipeline"
	"name-smart-go/internal/prompt"
	"name-smart-go/internal/rating"
	"name-smart-go/internal/repository"
	"name-smart-go/internal/service"
	"name-smart-go/pkg/database"
	"name-smart-go/pkg/embedding"
	"name-smart-go/pkg/es"
	"name-smart-go/pkg/kafka"
	"name-smart-go/pkg/llm"
	"name-smart-go/pkg/log"
	"name-smart-go/pkg/storage"
	"name-smart-go/pkg/tasks"
)

func main() {
	// 1. 初始化配置
	configPath := "./configs/config.yaml"
	if p := os.Getenv("NAME_SMART_CONFIG"); p != "" {
		configPath = p
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化存储
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB, cfg.Database.Redis.PoolSize)
	var descriptionRepo repository.NameDescriptionRepository
	if cfg.Database.MySQL.DSN != "" {
		database.InitMySQL(cfg.Database.MySQL.DSN)
		descriptionRepo = repository.NewNameDescriptionRepository(database.DB)
	} else {
		log.Warnf("未配置 MySQL，名字描述不可用")
	}

	// 4. 加载语料
	src, err := corpusSource(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化语料来源失败: %v", err)
	}
	names, err := corpus.Load(ctx, src, cfg.Corpus, cfg.Rating.MinVotes)
	if err != nil {
		log.Fatalf("加载语料失败: %v", err)
	}

	// 5. 初始化向量索引
	esClient, err := es.InitES(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("es 初始化失败: %v", err)
	}
	vectors := es.NewNameVectorStore(esClient, cfg.Elasticsearch)
	if err := vectors.EnsureIndex(ctx); err != nil {
		log.Errorf("名字向量索引不可用，向量相关的候选来源将降级: %v", err)
	} else if cfg.Corpus.SeedVectors {
		if _, err := vectors.Seed(ctx, src); err != nil {
			log.Errorf("导入名字向量失败: %v", err)
		}
	}

	// 6. 初始化任务队列和 Repository
	queue, closeQueue := jobQueue(cfg)
	defer closeQueue()
	sessionRepo := repository.NewSessionRepository(database.RDB, queue, cfg.Session)

	// 7. 初始化 Service (依赖注入)
	ratingModel := rating.NewModel(names.Ratings, names.Statistics, cfg.Rating)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	proposer := service.NewProposer(embeddingClient, vectors, ratingModel, names.Statistics, cfg.Recommend)
	filter := service.NewFilter(vectors, names.Similar, cfg.Filter)
	reasonGenerator := service.NewReasonGenerator(ratingModel, names.Statistics)
	suggestService := service.NewSuggestService(sessionRepo, proposer, filter, reasonGenerator, cfg.Recommend)
	sessionService := service.NewSessionService(sessionRepo, descriptionRepo, ratingModel, names.Statistics, names.Similar)

	// 8. 启动后台理由生成 worker
	workerDone := make(chan struct{})
	if cfg.Worker.Enabled {
		var finder pipeline.DescriptionFinder
		if descriptionRepo != nil {
			finder = descriptionRepo
		}
		tokenizer, err := prompt.NewTokenizer(cfg.LLM.Model)
		if err != nil {
			log.Fatalf("初始化 tokenizer 失败: %v", err)
		}
		processor := pipeline.NewProcessor(sessionRepo, finder, llm.NewClient(cfg.LLM), tokenizer, cfg.Worker, cfg.LLM)
		worker := pipeline.NewWorker(queue, processor, cfg.Worker)
		go func() {
			defer close(workerDone)
			if err := worker.Run(ctx); err != nil {
				log.Errorf("理由生成 worker 退出: %v", err)
			}
		}()
	} else {
		close(workerDone)
	}

	// 9. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	handler.RegisterRoutes(r, handler.NewSessionHandler(sessionService), handler.NewSuggestHandler(suggestService))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	<-ctx.Done()
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	<-workerDone
	log.Info("服务已优雅关闭")
}

// corpusSource 按配置返回本地目录或 MinIO 上的语料来源。
func corpusSource(ctx context.Context, cfg config.Config) (corpus.Source, error) {
	if cfg.Corpus.Source != "minio" {
		return corpus.DirSource{Dir: cfg.Corpus.Dir}, nil
	}
	if err := storage.InitMinIO(ctx, cfg.MinIO); err != nil {
		return nil, err
	}
	return corpus.MinIOSource{Client: storage.MinioClient, Bucket: cfg.MinIO.BucketName, Prefix: cfg.Corpus.Prefix}, nil
}

// jobQueue 按 worker.queue_driver 选择 Redis list 或 Kafka。
func jobQueue(cfg config.Config) (tasks.Queue, func()) {
	if cfg.Worker.QueueDriver == "kafka" {
		q := kafka.NewJobQueue(cfg.Kafka)
		return q, func() {
			if err := q.Close(); err != nil {
				log.Errorf("关闭 Kafka 队列失败: %v", err)
			}
		}
	}
	return repository.NewRedisJobQueue(database.RDB, cfg.Session.JobQueueKey), func() {}
}
