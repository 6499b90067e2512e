package chat

// WatcherCount exposes the number of registered controller watchers to tests.
func (c *Controller) WatcherCount() int {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return len(c.watchers)
}
