package controller

// Mutable numeric settings, adjustable at runtime by the telemetry API.
// Changing a sleep value while sleep mode is active re-applies immediately
// so the lights track the new value without waiting for the next tick.

// SetMinBrightness updates the minimum brightness percent.
func (c *Controller) SetMinBrightness(value int) {
	c.mu.Lock()
	c.cfg.MinBrightness = value
	c.mu.Unlock()
}

// SetMaxBrightness updates the maximum brightness percent.
func (c *Controller) SetMaxBrightness(value int) {
	c.mu.Lock()
	c.cfg.MaxBrightness = value
	c.mu.Unlock()
}

// SetMinColorTemp updates the minimum color temperature in Kelvin.
func (c *Controller) SetMinColorTemp(value int) {
	c.mu.Lock()
	c.cfg.MinColorTemp = value
	c.mu.Unlock()
}

// SetMaxColorTemp updates the maximum color temperature in Kelvin.
func (c *Controller) SetMaxColorTemp(value int) {
	c.mu.Lock()
	c.cfg.MaxColorTemp = value
	c.mu.Unlock()
}

// SetTransition updates the transition duration in seconds.
func (c *Controller) SetTransition(seconds int) {
	c.mu.Lock()
	c.cfg.TransitionSeconds = seconds
	c.mu.Unlock()
}

// SetSleepBrightness updates the sleep-mode brightness percent.
func (c *Controller) SetSleepBrightness(value int) {
	c.mu.Lock()
	c.cfg.SleepBrightness = value
	sleeping := c.sleepMode
	c.mu.Unlock()

	if sleeping {
		c.ForceUpdate()
	}
}

// SetSleepColorTemp updates the sleep-mode color temperature in Kelvin.
func (c *Controller) SetSleepColorTemp(value int) {
	c.mu.Lock()
	c.cfg.SleepColorTemp = value
	sleeping := c.sleepMode
	c.mu.Unlock()

	if sleeping {
		c.ForceUpdate()
	}
}
