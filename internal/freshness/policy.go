// Package freshness decides what to do with a cached reference table. It
// performs no I/O: callers describe the local entry and, when asked, the
// remote commit date, and receive an immutable Decision to execute.
package freshness

import (
	"fmt"
	"time"
)

// DefaultStaleThreshold bounds how long a cached table is reused without
// asking the remote repository.
const DefaultStaleThreshold = time.Hour

// Action 是策略给出的下一步动作。
type Action string

const (
	// ActionReuse 直接使用缓存，不访问远端。
	ActionReuse Action = "reuse"
	// ActionCheckRemote 缓存已超过阈值，需要查询远端最新提交时间。
	ActionCheckRemote Action = "check-remote"
	// ActionRefresh 远端没有更新：touch 缓存时间戳并复用内容。
	ActionRefresh Action = "refresh"
	// ActionDownload 缓存缺失或远端有更新，需要重新下载。
	ActionDownload Action = "download"
)

// LocalState 描述缓存条目的本地状态。
type LocalState struct {
	Present bool
	ModTime time.Time
}

// Decision 是一次策略判断的不可变记录。
type Decision struct {
	Action     Action
	Reason     string
	Age        time.Duration
	CommitDate time.Time
}

// Policy holds the staleness threshold. The zero value uses DefaultStaleThreshold.
type Policy struct {
	Threshold time.Duration
}

// New 返回使用给定阈值的策略；threshold <= 0 时退回默认的一小时。
func New(threshold time.Duration) Policy {
	return Policy{Threshold: threshold}
}

func (p Policy) threshold() time.Duration {
	if p.Threshold <= 0 {
		return DefaultStaleThreshold
	}
	return p.Threshold
}

// Evaluate 只依据本地状态作出判断：缺失则下载，未超阈值则复用，否则要求查询远端。
func (p Policy) Evaluate(local LocalState, now time.Time) Decision {
	if !local.Present {
		return Decision{Action: ActionDownload, Reason: "cache entry missing"}
	}

	age := now.Sub(local.ModTime)
	if age <= p.threshold() {
		reason := fmt.Sprintf("age %s within threshold %s", age.Truncate(time.Second), p.threshold())
		if age < 0 {
			reason = "cache timestamp is in the future"
		}
		return Decision{Action: ActionReuse, Reason: reason, Age: age}
	}

	return Decision{
		Action: ActionCheckRemote,
		Reason: fmt.Sprintf("age %s exceeds threshold %s", age.Truncate(time.Second), p.threshold()),
		Age:    age,
	}
}

// EvaluateRemote 在已获取远端最新提交时间后作出最终判断。
func (p Policy) EvaluateRemote(local LocalState, commitDate time.Time, now time.Time) Decision {
	if !local.Present {
		return Decision{Action: ActionDownload, Reason: "cache entry missing", CommitDate: commitDate}
	}

	age := now.Sub(local.ModTime)
	if !commitDate.After(local.ModTime) {
		return Decision{
			Action:     ActionRefresh,
			Reason:     "remote has no newer commit",
			Age:        age,
			CommitDate: commitDate,
		}
	}
	return Decision{
		Action:     ActionDownload,
		Reason:     "remote commit is newer than cache",
		Age:        age,
		CommitDate: commitDate,
	}
}

// NeedsRemote reports whether executing d requires a remote call.
func (d Decision) NeedsRemote() bool {
	return d.Action == ActionCheckRemote || d.Action == ActionDownload
}
