package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/handler"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/api/middleware"
	appconfig "github.com/adarshkasliwal/Adobe-Hackathon-Round2/config"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/cache"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/database"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/embedding"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/repository"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/services"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/internal/vectordb"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/pkg/storage"
	"github.com/adarshkasliwal/Adobe-Hackathon-Round2/pkg/taskqueue"
)

// 命令行选项
type flags struct {
	ConfigFile   string        // 配置文件路径
	Mode         string        // 运行模式 (debug/release)
	Port         int           // 服务端口，0表示使用配置文件值
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时

	// 批处理模式
	InputDir   string // 待分析的文档目录
	Persona    string // 分析视角（人物角色）
	Job        string // 待完成的任务描述
	OutputFile string // 分析结果输出路径，空则输出到stdout

	// 大纲模式
	OutlineFile string // 单文件大纲提取

	// 工作进程模式
	Worker bool // 以任务队列工作进程方式运行
}

func main() {
	// 加载.env文件（如果存在）
	_ = godotenv.Load()

	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if f.Port > 0 {
		cfg.Server.Port = f.Port
	}

	gin.SetMode(f.Mode)

	logger := setupLogger(cfg.Log)
	logger.Info("Starting Document Intelligence Engine...")

	// 初始化数据库
	if err := setupDatabase(cfg, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// 创建向量数据库
	vectorDB, err := setupVectorDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize vector database: %v", err)
	}
	defer vectorDB.Close()

	// 创建嵌入客户端
	embedClient, err := setupEmbedding(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize embedding client: %v", err)
	}

	// 创建缓存服务
	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	runRepo := repository.NewRunRepository()

	// 初始化业务服务
	outlineSvc := services.NewOutlineService(
		services.WithOutlineCache(cacheService),
		services.WithOutlineLogger(logger),
	)
	relevanceSvc := services.NewRelevanceService(outlineSvc, embedClient,
		services.WithVectorDB(vectorDB),
		services.WithRunRepository(runRepo),
		services.WithMaxWorkers(cfg.Analyzer.MaxWorkers),
		services.WithBatchBudget(cfg.Analyzer.BatchBudget),
		services.WithTopSections(cfg.Analyzer.TopSections),
		services.WithTopSummaries(cfg.Analyzer.TopSummaries),
		services.WithRelevanceLogger(logger),
	)

	// 单文件大纲提取模式
	if f.OutlineFile != "" {
		if err := runOutline(outlineSvc, f.OutlineFile, f.OutputFile); err != nil {
			logger.Fatalf("Outline extraction failed: %v", err)
		}
		return
	}

	// 批处理模式：分析目录中的全部文档后退出
	if f.InputDir != "" {
		if err := runBatch(relevanceSvc, f, logger); err != nil {
			logger.Fatalf("Batch analysis failed: %v", err)
		}
		return
	}

	// 工作进程模式：消费任务队列
	if f.Worker {
		if err := runWorker(cfg, outlineSvc, relevanceSvc, logger); err != nil {
			logger.Fatalf("Worker failed: %v", err)
		}
		return
	}

	// 创建文件存储服务
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 初始化API处理器
	docHandler := handler.NewDocumentHandler(fileStorage, outlineSvc)
	relevanceHandler := handler.NewRelevanceHandler(relevanceSvc, fileStorage, runRepo, queue)
	var taskHandler *handler.TaskHandler
	if queue != nil {
		taskHandler = handler.NewTaskHandler(queue)
	}

	r := api.SetupRouter(docHandler, relevanceHandler, taskHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  f.ReadTimeout,
		WriteTimeout: f.WriteTimeout,
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&f.Mode, "mode", "debug", "Run mode (debug/release)")
	flag.IntVar(&f.Port, "port", 0, "Server port (overrides config file)")
	flag.DurationVar(&f.ReadTimeout, "read-timeout", 30*time.Second, "Read timeout")
	flag.DurationVar(&f.WriteTimeout, "write-timeout", 30*time.Second, "Write timeout")

	flag.StringVar(&f.InputDir, "input", "", "Analyze all documents in this directory and exit")
	flag.StringVar(&f.Persona, "persona", "", "Persona for batch analysis")
	flag.StringVar(&f.Job, "job", "", "Job to be done for batch analysis")
	flag.StringVar(&f.OutputFile, "output", "", "Output file for batch/outline results (default stdout)")

	flag.StringVar(&f.OutlineFile, "outline", "", "Extract the heading outline of a single file and exit")

	flag.BoolVar(&f.Worker, "worker", false, "Run as a task queue worker")

	flag.Parse()
	return f
}

// setupLogger 设置日志系统
func setupLogger(cfg appconfig.LogConfig) *logrus.Logger {
	logger := middleware.GetLogger()

	switch cfg.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	// 配置了日志文件时启用轮转
	if cfg.File != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return logger
}

// setupDatabase 设置数据库
func setupDatabase(cfg *appconfig.Config, logger *logrus.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %v", err)
	}

	dbConfig := database.DefaultConfig()
	dbConfig.Type = cfg.Database.Type
	dbConfig.DSN = cfg.Database.DSN

	return database.Setup(dbConfig, logger)
}

// setupStorage 设置文件存储服务
func setupStorage(cfg *appconfig.Config) (storage.Storage, error) {
	if cfg.Storage.Type == "local" {
		if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %v", err)
		}
	}

	return storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		Path:      cfg.Storage.Path,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	})
}

// setupVectorDB 设置向量数据库
func setupVectorDB(cfg *appconfig.Config) (vectordb.Repository, error) {
	if cfg.VectorDB.Type == "faiss" {
		if err := os.MkdirAll(filepath.Dir(cfg.VectorDB.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create vector database directory: %v", err)
		}

		repo, err := vectordb.NewRepository(vectordb.Config{
			Type:              "faiss",
			Path:              cfg.VectorDB.Path,
			Dimension:         cfg.VectorDB.Dim,
			DistanceType:      vectordb.DistanceType(cfg.VectorDB.Distance),
			CreateIfNotExists: true,
		})
		if err == nil {
			return repo, nil
		}

		// FAISS初始化失败时回退到内存实现
		log.Printf("Warning: Failed to initialize FAISS vector database: %v", err)
		log.Printf("Falling back to in-memory vector database")
	}

	return vectordb.NewRepository(vectordb.Config{
		Type:         "memory",
		Dimension:    cfg.VectorDB.Dim,
		DistanceType: vectordb.DistanceType(cfg.VectorDB.Distance),
	})
}

// setupEmbedding 设置嵌入客户端
func setupEmbedding(cfg *appconfig.Config) (embedding.Client, error) {
	opts := []embedding.Option{
		embedding.WithDimensions(cfg.Embed.Dimensions),
		embedding.WithBatchSize(cfg.Embed.BatchSize),
		embedding.WithMaxInput(cfg.Embed.MaxInput),
	}

	if cfg.Embed.Provider == "remote" {
		if cfg.Embed.APIKey == "" {
			return nil, fmt.Errorf("embedding API key is required for remote provider")
		}
		opts = append(opts,
			embedding.WithAPIKey(cfg.Embed.APIKey),
			embedding.WithBaseURL(cfg.Embed.Endpoint),
			embedding.WithModel(cfg.Embed.Model),
		)
	}

	return embedding.NewClient(cfg.Embed.Provider, opts...)
}

// setupCache 设置缓存服务
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:            cfg.Cache.Type,
		DefaultTTL:      time.Duration(cfg.Cache.TTL) * time.Second,
		CleanupInterval: 10 * time.Minute,
	}

	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}

	if !cfg.Cache.Enable {
		cacheConfig.Type = "memory"
		cacheConfig.DefaultTTL = time.Minute
	}

	return cache.NewCache(cacheConfig)
}

// setupTaskQueue 设置任务队列
func setupTaskQueue(cfg *appconfig.Config, logger *logrus.Logger) (taskqueue.Queue, error) {
	queueConfig := taskqueue.DefaultConfig()
	queueConfig.RedisAddr = cfg.Queue.RedisAddr
	queueConfig.RedisPassword = cfg.Queue.RedisPassword
	queueConfig.RedisDB = cfg.Queue.RedisDB
	queueConfig.Concurrency = cfg.Queue.Concurrency
	queueConfig.RetryLimit = cfg.Queue.RetryLimit
	queueConfig.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second

	logger.WithFields(logrus.Fields{
		"type":        cfg.Queue.Type,
		"redis_addr":  cfg.Queue.RedisAddr,
		"concurrency": cfg.Queue.Concurrency,
		"retry_limit": cfg.Queue.RetryLimit,
	}).Info("Setting up task queue")

	return taskqueue.NewQueue(cfg.Queue.Type, queueConfig)
}

// runWorker 以工作进程方式消费任务队列
func runWorker(cfg *appconfig.Config, outlineSvc *services.OutlineService, relevanceSvc *services.RelevanceService, logger *logrus.Logger) error {
	queue, err := setupTaskQueue(cfg, logger)
	if err != nil {
		return err
	}
	defer queue.Close()

	queueConfig := taskqueue.DefaultConfig()
	queueConfig.RedisAddr = cfg.Queue.RedisAddr
	queueConfig.RedisPassword = cfg.Queue.RedisPassword
	queueConfig.RedisDB = cfg.Queue.RedisDB
	queueConfig.Concurrency = cfg.Queue.Concurrency
	queueConfig.RetryLimit = cfg.Queue.RetryLimit
	queueConfig.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second

	worker, err := taskqueue.NewRedisWorker(queue, queueConfig)
	if err != nil {
		return err
	}

	worker.RegisterHandler(taskqueue.NewOutlineTaskHandler(outlineSvc, logger))
	worker.RegisterHandler(taskqueue.NewRelevanceTaskHandler(relevanceSvc, logger))

	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	logger.Info("Worker is running, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	worker.Stop()
	return nil
}

// runOutline 提取单个文件的标题与大纲并输出JSON
func runOutline(outlineSvc *services.OutlineService, filePath, outputFile string) error {
	result, _, err := outlineSvc.AnalyzeFile(filePath)
	if err != nil {
		return err
	}

	return writeJSON(result, outputFile)
}

// runBatch 分析目录中的全部文档并输出排名结果
func runBatch(relevanceSvc *services.RelevanceService, f flags, logger *logrus.Logger) error {
	if f.Persona == "" || f.Job == "" {
		return fmt.Errorf("batch analysis requires -persona and -job")
	}

	docs, err := collectDocuments(f.InputDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no supported documents found in %s", f.InputDir)
	}

	logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"persona":   f.Persona,
	}).Info("Starting batch analysis")

	result, failures, err := relevanceSvc.AnalyzeBatch(context.Background(), docs, f.Persona, f.Job)
	if err != nil {
		return err
	}

	for _, failure := range failures {
		logger.WithFields(logrus.Fields{
			"document": failure.Document,
			"reason":   failure.Reason,
		}).Warn("Document failed during batch analysis")
	}

	return writeJSON(result, f.OutputFile)
}

// collectDocuments 收集目录下的受支持文档，按文件名排序保证输入顺序稳定
func collectDocuments(dir string) ([]services.DocumentInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var docs []services.DocumentInput
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pdf", ".md", ".markdown", ".txt", ".json":
			docs = append(docs, services.DocumentInput{
				Name: entry.Name(),
				Path: filepath.Join(dir, entry.Name()),
			})
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// writeJSON 将结果序列化为JSON并写入文件或stdout
func writeJSON(v interface{}, outputFile string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if outputFile == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
