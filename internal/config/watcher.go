package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"helmsman/internal/logger"
)

// Watch 监听配置文件变更。限额与权重只在启动时加载一次；这里只提示
// 运维人员需要重启，不做热加载。
func Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace the file on save, which drops a
	// direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					logger.Warnf("config: %s changed on disk; limits are load-once, restart to apply", path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("config: watcher error: %v", err)
			}
		}
	}()
	return nil
}
