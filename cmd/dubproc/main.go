package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ccp-p/video-dub-cli/dub-processor/internal/ui"
	"github.com/ccp-p/video-dub-cli/dub-processor/internal/watcher"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/pipeline"
	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/utils"
)

var (
	jobsDir    = flag.String("jobs", "./jobs", "任务清单目录")
	outputDir  = flag.String("output", "./output", "输出目录")
	tempDir    = flag.String("temp", "./temp", "临时文件目录")
	configFile = flag.String("config", "", "配置文件路径")
	strategy   = flag.String("strategy", "", "默认重构策略 (speed_change, frame_blend, freeze_frame, frame_interpolate)")
	watchMode  = flag.Bool("watch", false, "监听任务目录，新清单落盘后自动处理")
	logLevel   = flag.String("log-level", "info", "日志级别 (debug, info, warn, error)")
	logFile    = flag.String("log-file", "", "日志文件路径")
)

func main() {
	flag.Parse()

	utils.InitLogger(mapLogLevel(*logLevel), *logFile)

	printWelcome()

	config := loadConfig()

	if !checkDependencies() {
		logrus.Fatal("缺少必要的依赖项，无法继续")
	}

	proc := pipeline.New(config)

	batch := pipeline.NewBatchProcessor(proc, config, nil)
	batch.SetProgress(ui.NewBatchProgress(config.ShowProgress))

	// 先处理目录里已有的清单
	results, err := batch.ProcessJobs()
	if err != nil {
		logrus.Fatalf("批处理失败: %v", err)
	}
	printSummary(results)

	if config.WatchMode {
		runWatchMode(config, batch)
	}
}

func mapLogLevel(level string) string {
	switch level {
	case "debug":
		return utils.LogLevelVerbose
	case "warn", "error":
		return utils.LogLevelQuiet
	default:
		return utils.LogLevelNormal
	}
}

func printWelcome() {
	fmt.Println()
	color.Cyan("================================")
	color.Cyan("   视频配音合成工具 - Go 版本   ")
	color.Cyan("================================")
	fmt.Println()
}

func checkDependencies() bool {
	fmt.Print("检查系统依赖... ")

	if !utils.CheckFFmpeg() {
		color.Red("失败")
		logrus.Error("未检测到FFmpeg，请确保FFmpeg已安装并添加到系统路径")
		return false
	}
	if !utils.CheckFFprobe() {
		color.Red("失败")
		logrus.Error("未检测到ffprobe，请确保FFmpeg完整安装")
		return false
	}

	color.Green("通过")
	return true
}

func loadConfig() *models.Config {
	fmt.Print("加载配置... ")

	config := models.NewDefaultConfig()

	if *configFile != "" {
		if err := config.LoadFromFile(*configFile); err != nil {
			color.Yellow("警告: 加载配置文件失败: %v", err)
			logrus.Warnf("配置加载失败: %v，将使用默认配置", err)
		} else {
			color.Green("成功")
		}
	} else {
		color.Yellow("未指定配置文件，使用默认配置")
	}

	// 命令行参数优先于配置文件
	if *jobsDir != "./jobs" {
		config.JobsFolder = *jobsDir
	}
	if *outputDir != "./output" {
		config.OutputFolder = *outputDir
	}
	if *tempDir != "./temp" {
		config.TempDir = *tempDir
	}
	if *strategy != "" {
		config.Strategy = *strategy
	}
	if *watchMode {
		config.WatchMode = true
	}

	if err := config.Validate(); err != nil {
		logrus.Fatalf("配置无效: %v", err)
	}

	os.MkdirAll(config.JobsFolder, 0755)
	os.MkdirAll(config.OutputFolder, 0755)

	return config
}

func printSummary(results []pipeline.BatchResult) {
	if len(results) == 0 {
		fmt.Println("\n任务目录为空")
		return
	}

	succeeded := 0
	fmt.Println("\n处理结果:")
	fmt.Println("--------------------")
	for _, result := range results {
		if result.Success {
			succeeded++
			color.Green("成功 %s -> %s (用时 %s)",
				result.JobPath, result.Result.OutputPath,
				utils.FormatTimeDuration(result.ProcessTime.Seconds()))
		} else {
			color.Red("失败 %s: %v", result.JobPath, result.Error)
		}
	}
	fmt.Println("--------------------")
	fmt.Printf("共 %d 个任务, 成功 %d, 失败 %d\n", len(results), succeeded, len(results)-succeeded)
}

func runWatchMode(config *models.Config, batch *pipeline.BatchProcessor) {
	stop, err := watcher.StartJobMonitoring(config.JobsFolder, func(jobPath string) {
		result := batch.ProcessJob(jobPath)
		if result.Success {
			color.Green("成功 %s -> %s", jobPath, result.Result.OutputPath)
		} else {
			color.Red("失败 %s: %v", jobPath, result.Error)
		}
	}, 2*time.Second)
	if err != nil {
		logrus.Fatalf("启动任务监听失败: %v", err)
	}
	defer stop()

	fmt.Println("\n监听模式已启动，按 Ctrl+C 退出")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\n收到退出信号，正在停止...")
}
