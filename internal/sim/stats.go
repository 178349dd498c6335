package sim

// Counter tallies submitted fixtures during a run.
type Counter struct {
	Created int
	Updated int
	Cores   int
}

func (c *Counter) AddCreate(f ServerFixture) {
	c.Created++
	c.Cores += f.CPUCores
}

func (c *Counter) AddUpdate() {
	c.Updated++
}
