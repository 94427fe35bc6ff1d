package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/sirupsen/logrus"

	"github.com/ocdid-hub/ocdid-hub/internal/version"
)

// GitHubOptions 描述连接 GitHub 仓库所需的参数。
type GitHubOptions struct {
	// APIBaseURL 为空时使用 https://api.github.com/，可指向 GitHub Enterprise 或测试桩。
	APIBaseURL string
	Owner      string
	Repo       string
	// Ref 为空时使用仓库默认分支。
	Ref        string
	Token      string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// GitHub implements Source on top of the GitHub REST API.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	ref    string
	logger logrus.FieldLogger
}

var _ Source = (*GitHub)(nil)

// NewGitHub 构建 GitHub 远端客户端，所有请求复用 opts.HTTPClient。
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if strings.TrimSpace(opts.Owner) == "" || strings.TrimSpace(opts.Repo) == "" {
		return nil, errors.New("remote owner and repo are required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}

	client := github.NewClient(httpClient)
	client.UserAgent = version.UserAgent()
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if base := strings.TrimSpace(opts.APIBaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse api base url: %w", err)
		}
		client.BaseURL = parsed
	}

	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	return &GitHub{
		client: client,
		owner:  opts.Owner,
		repo:   opts.Repo,
		ref:    opts.Ref,
		logger: logger.WithField("repo", opts.Owner+"/"+opts.Repo),
	}, nil
}

// LatestCommitDate 查询按路径过滤的提交历史，返回第一条（最新）提交的 committer 时间。
func (g *GitHub) LatestCommitDate(ctx context.Context, filePath string) (time.Time, error) {
	opts := &github.CommitsListOptions{
		SHA:         g.ref,
		Path:        filePath,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, _, err := g.client.Repositories.ListCommits(ctx, g.owner, g.repo, opts)
	if err != nil {
		return time.Time{}, unavailable("list commits", filePath, err)
	}
	if len(commits) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNoHistory, filePath)
	}

	date := commits[0].GetCommit().GetCommitter().GetDate().Time
	if date.IsZero() {
		return time.Time{}, fmt.Errorf("%w: commit %s has no committer date", ErrUnavailable, commits[0].GetSHA())
	}
	g.logger.WithFields(logrus.Fields{
		"action": "latest_commit",
		"path":   filePath,
		"sha":    commits[0].GetSHA(),
		"date":   date,
	}).Debug("remote commit resolved")
	return date, nil
}

// BlobID 列出 path 所在目录，按文件名精确匹配并返回其 sha。
func (g *GitHub) BlobID(ctx context.Context, filePath string) (string, bool, error) {
	entry, err := g.lookup(ctx, filePath)
	if err != nil {
		return "", false, err
	}
	if entry == nil || entry.GetSHA() == "" {
		return "", false, nil
	}
	return entry.GetSHA(), true, nil
}

// rawMediaType 让 contents 接口直接返回文件正文，而不是 base64 包装的 JSON。
const rawMediaType = "application/vnd.github.raw+json"

// Download 按路径请求 contents 接口的 raw 形式并返回正文，调用方负责关闭返回的 Body。
// 不依赖目录列表，因此列表缺失的文件仍可下载并交由校验环节处理。
func (g *GitHub) Download(ctx context.Context, filePath string) (io.ReadCloser, error) {
	u := fmt.Sprintf("repos/%s/%s/contents/%s", g.owner, g.repo, (&url.URL{Path: strings.Trim(filePath, "/")}).String())
	if g.ref != "" {
		u += "?ref=" + url.QueryEscape(g.ref)
	}
	req, err := g.client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", rawMediaType)

	resp, err := g.client.BareDo(ctx, req)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, unavailable("download", filePath, err)
	}

	g.logger.WithFields(logrus.Fields{
		"action": "download",
		"path":   filePath,
		"size":   resp.ContentLength,
	}).Debug("remote download started")
	return resp.Body, nil
}

// lookup 供 BlobID 使用：返回目录列表中与 path 基名同名的条目；目录不存在或没有匹配项时返回 nil。
func (g *GitHub) lookup(ctx context.Context, filePath string) (*github.RepositoryContent, error) {
	dir := path.Dir(filePath)
	name := path.Base(filePath)

	var opts *github.RepositoryContentGetOptions
	if g.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.ref}
	}
	_, entries, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dir, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, unavailable("list directory", dir, err)
	}

	for _, entry := range entries {
		if entry.GetName() == name {
			return entry, nil
		}
	}
	return nil, nil
}

func unavailable(op, target string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %s %s: rate limited until %s: %w", ErrUnavailable, op, target, rateErr.Rate.Reset.Time.Format(time.RFC3339), err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, target, err)
}
