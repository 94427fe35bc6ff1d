package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ocdid-hub/ocdid-hub/internal/cache"
	"github.com/ocdid-hub/ocdid-hub/internal/config"
	"github.com/ocdid-hub/ocdid-hub/internal/freshness"
	"github.com/ocdid-hub/ocdid-hub/internal/logging"
	"github.com/ocdid-hub/ocdid-hub/internal/ocdid"
	"github.com/ocdid-hub/ocdid-hub/internal/remote"
	"github.com/ocdid-hub/ocdid-hub/internal/server"
	"github.com/ocdid-hub/ocdid-hub/internal/server/routes"
	"github.com/ocdid-hub/ocdid-hub/internal/version"
)

// 退出码约定。
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitAbsent     = 3
	exitUnverified = 4
)

// defaultConfigFile 在未指定 -config / OCDID_HUB_CONFIG 且文件存在时自动加载。
const defaultConfigFile = "config.toml"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath      string
	checkOnly       bool
	showVersion     bool
	serve           bool
	dataset         string
	localFile       string
	id              string
	allowUnverified bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(exitUsage)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return exitFailure
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return exitFailure
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["datasets"] = len(cfg.Datasets)
		fields["remote"] = cfg.Remote.Slug()
		fields["auth"] = cfg.Remote.AuthMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return exitOK
	}

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化数据集提供者失败: %v\n", err)
		return exitFailure
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["remote"] = cfg.Remote.Slug()
	fields["auth"] = cfg.Remote.AuthMode()
	fields["stale_threshold"] = cfg.Global.StaleThreshold.DurationValue().String()
	fields["version"] = version.Full()
	logger.WithFields(fields).Debug("配置加载完成")

	if opts.serve {
		if err := startHTTPServer(cfg, provider, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return query(ctx, cfg, provider, opts)
}

// buildProvider 按“缓存目录 → HTTP 客户端 → GitHub 远端 → Provider”顺序装配依赖。
func buildProvider(cfg *config.Config, logger *logrus.Logger) (*ocdid.Provider, error) {
	root, err := cache.ResolveRoot(cfg.Global.CacheDir)
	if err != nil {
		return nil, err
	}
	store, err := cache.NewStore(root)
	if err != nil {
		return nil, err
	}

	httpClient := remote.NewHTTPClient(cfg.Global.RemoteTimeout.DurationValue())
	source, err := remote.NewGitHub(remote.GitHubOptions{
		APIBaseURL: cfg.Remote.APIBaseURL,
		Owner:      cfg.Remote.Owner,
		Repo:       cfg.Remote.Repo,
		Ref:        cfg.Remote.Ref,
		Token:      cfg.Remote.Token,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return ocdid.NewProvider(ocdid.Options{
		Store:     store,
		Remote:    source,
		Policy:    freshness.New(cfg.Global.StaleThreshold.DurationValue()),
		Directory: cfg.Remote.Directory,
		Logger:    logger,
	})
}

// query 解析单个数据集，输出摘要或成员检查结果。
func query(ctx context.Context, cfg *config.Config, provider *ocdid.Provider, opts cliOptions) int {
	ref := ocdid.ReferenceFile{Name: opts.dataset, Override: opts.localFile}
	if ref.Override == "" {
		ref.Override = cfg.Override(ref.Name)
	}

	result, err := provider.Identifiers(ctx, ref)
	switch {
	case err == nil:
	case ocdid.IsWarning(err) && result != nil:
		fmt.Fprintf(stdErr, "warning: %v\n", err)
		if !opts.allowUnverified {
			return exitUnverified
		}
	default:
		fmt.Fprintf(stdErr, "获取数据集 %s 失败: %v\n", ref.Name, err)
		return exitFailure
	}

	if opts.id != "" {
		if result.Set.Contains(opts.id) {
			fmt.Fprintf(stdOut, "%s\tpresent\n", opts.id)
			return exitOK
		}
		fmt.Fprintf(stdOut, "%s\tabsent\n", opts.id)
		return exitAbsent
	}

	fmt.Fprintf(stdOut, "dataset=%s source=%s verified=%t count=%d path=%s\n",
		result.Name, result.Source, result.Verified, result.Set.Len(), result.Path)
	return exitOK
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("ocdid-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		country    string
		opts       cliOptions
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 OCDID_HUB_CONFIG 覆盖）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	fs.BoolVar(&opts.serve, "serve", false, "启动 HTTP 查询服务")
	fs.StringVar(&opts.dataset, "dataset", "", "数据集名称，例如 country-ar")
	fs.StringVar(&country, "country", "", "国家代码，等价于 -dataset country-<code>")
	fs.StringVar(&opts.localFile, "local-file", "", "使用本地 CSV，跳过缓存与远端")
	fs.StringVar(&opts.id, "id", "", "检查该 OCD-ID 是否存在（不存在时退出码 3）")
	fs.BoolVar(&opts.allowUnverified, "allow-unverified", false, "校验失败时仍使用下载内容")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("未知参数: %s", strings.Join(fs.Args(), " "))
	}

	if country != "" {
		if opts.dataset != "" {
			return cliOptions{}, errors.New("-dataset 与 -country 不能同时使用")
		}
		opts.dataset = ocdid.Country(country).Name
	}
	opts.dataset = strings.ToLower(strings.TrimSpace(opts.dataset))
	opts.id = strings.TrimSpace(opts.id)

	if !opts.showVersion && !opts.checkOnly && !opts.serve && opts.dataset == "" {
		return cliOptions{}, errors.New("需要 -dataset、-country、-serve 或 -check-config 之一")
	}

	path := os.Getenv("OCDID_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	opts.configPath = path

	return opts, nil
}

func startHTTPServer(cfg *config.Config, resolver server.Resolver, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Resolver:   resolver,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDatasetRoutes(app, resolver, cfg.Datasets)

	logger.WithFields(logrus.Fields{
		"action":   "listen",
		"port":     port,
		"datasets": len(cfg.Datasets),
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
