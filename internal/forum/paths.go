// Package forum is the forum engine: messageboards, topics and posts served
// under a mount path (e.g. /forums). The host application mounts it with
// Engine.Mount and uses Paths to build links into it.
package forum

import (
	"net/url"
	"strings"
)

// Paths builds engine-relative URLs. Values are path-escaped; the mount path
// is not included (see MountedPaths).
type Paths struct{}

// MessageboardsPath is the engine index.
func (Paths) MessageboardsPath() string { return "/" }

// MessageboardPath returns "/:messageboard_id".
func (Paths) MessageboardPath(messageboardID string) string {
	return "/" + url.PathEscape(messageboardID)
}

// MessageboardTopicPath returns "/:messageboard_id/:topic_slug".
func (Paths) MessageboardTopicPath(messageboardID, topicSlug string) string {
	return "/" + url.PathEscape(messageboardID) + "/" + url.PathEscape(topicSlug)
}

// MountedPaths prefixes every Paths result with the engine mount path.
type MountedPaths struct {
	Mount string
	Paths
}

// MessageboardsPath returns the engine index under the mount.
func (m MountedPaths) MessageboardsPath() string {
	return joinMount(m.Mount, m.Paths.MessageboardsPath())
}

// MessageboardPath returns the messageboard URL under the mount.
func (m MountedPaths) MessageboardPath(messageboardID string) string {
	return joinMount(m.Mount, m.Paths.MessageboardPath(messageboardID))
}

// MessageboardTopicPath returns the topic URL under the mount.
func (m MountedPaths) MessageboardTopicPath(messageboardID, topicSlug string) string {
	return joinMount(m.Mount, m.Paths.MessageboardTopicPath(messageboardID, topicSlug))
}

func joinMount(mount, p string) string {
	mount = strings.TrimRight(mount, "/")
	if p == "/" && mount != "" {
		return mount
	}
	return mount + p
}
