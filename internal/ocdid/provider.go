package ocdid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ocdid-hub/ocdid-hub/internal/cache"
	"github.com/ocdid-hub/ocdid-hub/internal/dataset"
	"github.com/ocdid-hub/ocdid-hub/internal/digest"
	"github.com/ocdid-hub/ocdid-hub/internal/freshness"
	"github.com/ocdid-hub/ocdid-hub/internal/logging"
	"github.com/ocdid-hub/ocdid-hub/internal/remote"
)

// DefaultDirectory is the repository directory holding the identifier tables.
const DefaultDirectory = "identifiers"

// ReferenceFile 标识一个远端标识符表。Override 非空时完全绕过缓存与远端。
type ReferenceFile struct {
	Name     string
	Override string
}

// Country 返回国家级数据集的引用，例如 Country("AR") → country-ar。
func Country(code string) ReferenceFile {
	return ReferenceFile{Name: "country-" + strings.ToLower(strings.TrimSpace(code))}
}

// Filename 返回远端与缓存共用的文件名。
func (r ReferenceFile) Filename() string {
	return r.Name + ".csv"
}

// Source 记录结果集来自哪里。
type Source string

const (
	SourceOverride   Source = "override"
	SourceCache      Source = "cache"
	SourceRefreshed  Source = "refreshed"
	SourceDownloaded Source = "downloaded"
)

// Result 是一次 Identifiers 调用的产出。
type Result struct {
	Name   string
	Set    dataset.IdentifierSet
	Source Source
	// Verified 仅在下载内容未通过 blob 校验时为 false。
	Verified bool
	Decision freshness.Decision
	// Path 是实际解析的本地文件。
	Path string
}

// Options 汇总 Provider 的依赖，便于在测试中注入 fake。
type Options struct {
	Store     cache.Store
	Remote    remote.Source
	Policy    freshness.Policy
	Directory string
	Now       func() time.Time
	Logger    logrus.FieldLogger
}

// Provider 负责 orchestrate “override → 新鲜度判断 → 远端查询 → 下载校验 → 解析” 的全流程。
type Provider struct {
	store     cache.Store
	remote    remote.Source
	policy    freshness.Policy
	directory string
	now       func() time.Time
	logger    logrus.FieldLogger
}

// NewProvider 校验依赖并填充默认值（目录 identifiers、时钟 time.Now）。
func NewProvider(opts Options) (*Provider, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("remote source is required")
	}

	dir := strings.Trim(strings.TrimSpace(opts.Directory), "/")
	if dir == "" {
		dir = DefaultDirectory
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	return &Provider{
		store:     opts.Store,
		remote:    opts.Remote,
		policy:    opts.Policy,
		directory: dir,
		now:       now,
		logger:    logger,
	}, nil
}

// RemotePath 返回 ref 在远端仓库中的路径。
func (p *Provider) RemotePath(ref ReferenceFile) string {
	return path.Join(p.directory, ref.Filename())
}

// Identifiers 返回 ref 对应的标识符集合。
//
// 校验失败时同时返回 Result（Verified=false）与 *IntegrityError；其它错误均不返回结果。
func (p *Provider) Identifiers(ctx context.Context, ref ReferenceFile) (*Result, error) {
	if ref.Override != "" {
		return p.loadOverride(ref)
	}
	if err := cache.ValidateName(ref.Name); err != nil {
		return nil, err
	}

	unlock := p.store.Lock(ref.Name)
	defer unlock()

	now := p.now()
	local := freshness.LocalState{}
	entry, err := p.store.Stat(ctx, ref.Name)
	switch {
	case err == nil:
		local = freshness.LocalState{Present: true, ModTime: entry.ModTime}
	case errors.Is(err, cache.ErrNotFound):
	default:
		return nil, fmt.Errorf("stat cache entry %s: %w", ref.Name, err)
	}

	remotePath := p.RemotePath(ref)
	decision := p.policy.Evaluate(local, now)
	if decision.Action == freshness.ActionCheckRemote {
		commitDate, err := p.remote.LatestCommitDate(ctx, remotePath)
		if err != nil {
			p.logDecision(ref, decision).WithError(err).Warn("remote_check_failed")
			return nil, fmt.Errorf("check freshness of %s: %w", ref.Name, err)
		}
		decision = p.policy.EvaluateRemote(local, commitDate, now)
	}
	p.logDecision(ref, decision).Info("freshness_decision")

	switch decision.Action {
	case freshness.ActionReuse:
		return p.loadCached(ctx, ref.Name, SourceCache, decision)
	case freshness.ActionRefresh:
		if err := p.store.Touch(ctx, ref.Name, now); err != nil {
			return nil, fmt.Errorf("refresh timestamp of %s: %w", ref.Name, err)
		}
		return p.loadCached(ctx, ref.Name, SourceRefreshed, decision)
	case freshness.ActionDownload:
		return p.downloadAndVerify(ctx, ref, remotePath, decision, now)
	default:
		return nil, fmt.Errorf("unexpected freshness action %q", decision.Action)
	}
}

func (p *Provider) loadOverride(ref ReferenceFile) (*Result, error) {
	p.logger.WithFields(logging.DatasetFields(ref.Name, string(SourceOverride))).
		WithField("path", ref.Override).
		Info("using local override")
	return p.load(ref.Name, ref.Override, SourceOverride, true, freshness.Decision{Reason: "local override"})
}

// downloadAndVerify 下载到暂存文件，与远端 blob id 比对后再提升为正式缓存。
// 下载失败时清理暂存文件；校验失败时保留暂存文件供排查，正式缓存保持不变。
func (p *Provider) downloadAndVerify(ctx context.Context, ref ReferenceFile, remotePath string, decision freshness.Decision, now time.Time) (*Result, error) {
	body, err := p.remote.Download(ctx, remotePath)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.Name, err)
	}
	staged, err := p.store.Stage(ctx, ref.Name, body)
	body.Close()
	if err != nil {
		if errors.Is(err, cache.ErrWriteFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("stage %s: %w", ref.Name, err)
		}
		return nil, fmt.Errorf("download %s: %w: %w", ref.Name, ErrRemoteUnavailable, err)
	}

	actual, err := digest.BlobSHA(staged.FilePath)
	if err != nil {
		p.discard(staged)
		return nil, fmt.Errorf("hash %s: %w", ref.Name, err)
	}

	expected, ok, err := p.remote.BlobID(ctx, remotePath)
	if err != nil {
		p.discard(staged)
		return nil, fmt.Errorf("resolve blob id of %s: %w", ref.Name, err)
	}

	if !ok || expected != actual {
		integrity := &IntegrityError{Name: ref.Name, Path: staged.FilePath, Expected: expected, Actual: actual}
		p.logger.WithFields(logging.DatasetFields(ref.Name, string(SourceDownloaded))).
			WithFields(logrus.Fields{
				"expected_blob": expected,
				"actual_blob":   actual,
				"staged_path":   staged.FilePath,
			}).Warn("integrity_mismatch")

		result, err := p.load(ref.Name, staged.FilePath, SourceDownloaded, false, decision)
		if err != nil {
			return nil, err
		}
		return result, integrity
	}

	promoted, err := p.store.Promote(ctx, staged, now)
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", ref.Name, err)
	}
	p.logger.WithFields(logging.DatasetFields(ref.Name, string(SourceDownloaded))).
		WithFields(logrus.Fields{"blob": actual, "size": promoted.SizeBytes}).
		Info("download_verified")
	return p.load(ref.Name, promoted.FilePath, SourceDownloaded, true, decision)
}

// discard 清理暂存文件；失败只记录告警，不覆盖原始错误。
func (p *Provider) discard(staged *cache.Staged) {
	if err := p.store.Discard(staged); err != nil {
		p.logger.WithFields(logging.DatasetFields(staged.Name, string(SourceDownloaded))).
			WithField("staged_path", staged.FilePath).
			WithError(err).
			Warn("discard_staged_failed")
	}
}

// loadCached 从缓存条目流式解析，读取期间持有的文件句柄在返回前关闭。
func (p *Provider) loadCached(ctx context.Context, name string, source Source, decision freshness.Decision) (*Result, error) {
	cached, err := p.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open cache entry %s: %w", name, err)
	}
	defer cached.Reader.Close()

	set, err := dataset.Parse(cached.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cached.Entry.FilePath, err)
	}
	return &Result{
		Name:     name,
		Set:      set,
		Source:   source,
		Verified: true,
		Decision: decision,
		Path:     cached.Entry.FilePath,
	}, nil
}

func (p *Provider) load(name, filePath string, source Source, verified bool, decision freshness.Decision) (*Result, error) {
	set, err := dataset.Load(filePath)
	if err != nil {
		return nil, err
	}
	return &Result{
		Name:     name,
		Set:      set,
		Source:   source,
		Verified: verified,
		Decision: decision,
		Path:     filePath,
	}, nil
}

func (p *Provider) logDecision(ref ReferenceFile, decision freshness.Decision) logrus.FieldLogger {
	fields := logging.DatasetFields(ref.Name, "")
	fields["action"] = string(decision.Action)
	fields["reason"] = decision.Reason
	fields["remote"] = decision.NeedsRemote()
	if decision.Age != 0 {
		fields["age"] = decision.Age.Truncate(time.Second).String()
	}
	if !decision.CommitDate.IsZero() {
		fields["commit_date"] = decision.CommitDate
	}
	return p.logger.WithFields(fields)
}
