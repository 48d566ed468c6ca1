package flexconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/saruyev/flexconfig/feeders"
)

// Static errors for configuration access BDD tests
var (
	errNoConfigurationBuilt = errors.New("no configuration was built")
	errKeyShouldNotExist    = errors.New("key should not exist")
	errKeyShouldExist       = errors.New("key should exist")
	errValueShouldBeNull    = errors.New("value should be null")
	errNoSectionOpened      = errors.New("no section was opened")
	errSectionNotEmpty      = errors.New("section should have no children")
)

// Configuration access BDD test context
type AccessBDDTestContext struct {
	builder *Builder
	cfg     *FlexConfig
	section *FlexConfig
	value   Value
}

func (ctx *AccessBDDTestContext) resetContext() {
	ctx.builder = nil
	ctx.cfg = nil
	ctx.section = nil
	ctx.value = Value{}
}

func (ctx *AccessBDDTestContext) build() error {
	cfg, err := ctx.builder.Build(context.Background())
	if err != nil {
		return fmt.Errorf("building configuration: %w", err)
	}
	ctx.cfg = cfg
	return nil
}

func (ctx *AccessBDDTestContext) iHaveAConfigurationWithValues(table *godog.Table) error {
	ctx.resetContext()
	feeder := feeders.NewMemoryFeeder(nil)
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		feeder.Set(row.Cells[0].Value, row.Cells[1].Value)
	}
	ctx.builder = NewBuilder().AddFeeder(feeder)
	return ctx.build()
}

func (ctx *AccessBDDTestContext) iHaveAConfigurationSourceWithSetTo(key, value string) error {
	ctx.resetContext()
	feeder := feeders.NewMemoryFeeder(map[string]string{key: value})
	ctx.builder = NewBuilder().AddFeeder(feeder)
	return ctx.build()
}

func (ctx *AccessBDDTestContext) aLaterConfigurationSourceWithSetTo(key, value string) error {
	if ctx.builder == nil {
		return errNoConfigurationBuilt
	}
	ctx.builder.AddFeeder(feeders.NewMemoryFeeder(map[string]string{key: value}))
	return ctx.build()
}

func (ctx *AccessBDDTestContext) iHaveAConfigurationSourceWhereIsNull(key string) error {
	ctx.resetContext()
	feeder := feeders.NewMemoryFeeder(nil)
	feeder.SetNull(key)
	ctx.builder = NewBuilder().AddFeeder(feeder)
	return ctx.build()
}

func (ctx *AccessBDDTestContext) aLaterConfigurationSourceWhereIsNull(key string) error {
	if ctx.builder == nil {
		return errNoConfigurationBuilt
	}
	feeder := feeders.NewMemoryFeeder(nil)
	feeder.SetNull(key)
	ctx.builder.AddFeeder(feeder)
	return ctx.build()
}

func (ctx *AccessBDDTestContext) iReadTheKey(key string) error {
	if ctx.cfg == nil {
		return errNoConfigurationBuilt
	}
	ctx.value = ctx.cfg.Get(key)
	return nil
}

func (ctx *AccessBDDTestContext) theValueShouldBe(expected string) error {
	if !ctx.value.Exists() {
		return fmt.Errorf("%w: %s", errKeyShouldExist, ctx.value.Key())
	}
	if got := ctx.value.String(); got != expected {
		return fmt.Errorf("expected %q, got %q", expected, got)
	}
	return nil
}

func (ctx *AccessBDDTestContext) theKeyShouldNotExist() error {
	if ctx.value.Exists() {
		return fmt.Errorf("%w: %s", errKeyShouldNotExist, ctx.value.Key())
	}
	return nil
}

func (ctx *AccessBDDTestContext) theKeyShouldExist() error {
	if !ctx.value.Exists() {
		return fmt.Errorf("%w: %s", errKeyShouldExist, ctx.value.Key())
	}
	return nil
}

func (ctx *AccessBDDTestContext) theValueShouldBeNull() error {
	if !ctx.value.IsNull() {
		return fmt.Errorf("%w: %s", errValueShouldBeNull, ctx.value.Key())
	}
	return nil
}

func (ctx *AccessBDDTestContext) iOpenTheSection(path string) error {
	if ctx.cfg == nil {
		return errNoConfigurationBuilt
	}
	ctx.section = ctx.cfg.Section(path)
	return nil
}

func (ctx *AccessBDDTestContext) iReadTheSectionKey(key string) error {
	if ctx.section == nil {
		return errNoSectionOpened
	}
	ctx.value = ctx.section.Get(key)
	return nil
}

func (ctx *AccessBDDTestContext) theSectionChildrenShouldBe(expected string) error {
	if ctx.section == nil {
		return errNoSectionOpened
	}
	want := strings.Split(expected, ", ")
	got := ctx.section.Keys()
	if len(got) != len(want) {
		return fmt.Errorf("expected children %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("expected children %v, got %v", want, got)
		}
	}
	return nil
}

func (ctx *AccessBDDTestContext) theSectionShouldHaveNoChildren() error {
	if ctx.section == nil {
		return errNoSectionOpened
	}
	if children := ctx.section.Keys(); len(children) != 0 {
		return fmt.Errorf("%w, got %v", errSectionNotEmpty, children)
	}
	return nil
}

// InitializeAccessScenario registers step definitions for configuration
// access scenarios
func InitializeAccessScenario(ctx *godog.ScenarioContext) {
	testCtx := &AccessBDDTestContext{}

	// Setup steps
	ctx.Step(`^I have a configuration with values:$`, testCtx.iHaveAConfigurationWithValues)
	ctx.Step(`^I have a configuration source with "([^"]*)" set to "([^"]*)"$`, testCtx.iHaveAConfigurationSourceWithSetTo)
	ctx.Step(`^a later configuration source with "([^"]*)" set to "([^"]*)"$`, testCtx.aLaterConfigurationSourceWithSetTo)
	ctx.Step(`^I have a configuration source where "([^"]*)" is null$`, testCtx.iHaveAConfigurationSourceWhereIsNull)
	ctx.Step(`^a later configuration source where "([^"]*)" is null$`, testCtx.aLaterConfigurationSourceWhereIsNull)

	// Reading steps
	ctx.Step(`^I read the key "([^"]*)"$`, testCtx.iReadTheKey)
	ctx.Step(`^the value should be "([^"]*)"$`, testCtx.theValueShouldBe)
	ctx.Step(`^the key should not exist$`, testCtx.theKeyShouldNotExist)
	ctx.Step(`^the key should exist$`, testCtx.theKeyShouldExist)
	ctx.Step(`^the value should be null$`, testCtx.theValueShouldBeNull)

	// Section steps
	ctx.Step(`^I open the section "([^"]*)"$`, testCtx.iOpenTheSection)
	ctx.Step(`^I read the section key "([^"]*)"$`, testCtx.iReadTheSectionKey)
	ctx.Step(`^the section children should be "([^"]*)"$`, testCtx.theSectionChildrenShouldBe)
	ctx.Step(`^the section should have no children$`, testCtx.theSectionShouldHaveNoChildren)
}

// TestConfigurationAccess runs the BDD tests for layered configuration access
func TestConfigurationAccess(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeAccessScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/configuration_access.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
