package control

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sameappswitcher/internal/candidates"
	"sameappswitcher/internal/cycle"
	"sameappswitcher/internal/hotkeys"
	"sameappswitcher/internal/identity"
	"sameappswitcher/internal/window"
)

type fakeRegistrar struct {
	held     map[hotkeys.ID]hotkeys.Binding
	fail     map[hotkeys.ID]error
	attempts []hotkeys.ID
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{held: map[hotkeys.ID]hotkeys.Binding{}, fail: map[hotkeys.ID]error{}}
}

func (r *fakeRegistrar) Register(id hotkeys.ID, b hotkeys.Binding) error {
	r.attempts = append(r.attempts, id)
	if err := r.fail[id]; err != nil {
		return err
	}
	r.held[id] = b
	return nil
}

func (r *fakeRegistrar) Unregister(id hotkeys.ID) error {
	delete(r.held, id)
	return nil
}

type fakeKeys map[int]int16

func (k fakeKeys) KeyState(vk int) int16 { return k[vk] }

type fakeForeground struct {
	hwnd window.Handle
	err  error
}

func (f *fakeForeground) Foreground() (window.Handle, error) { return f.hwnd, f.err }

type fakeResolver map[window.Handle]identity.Identity

func (r fakeResolver) Resolve(h window.Handle) (identity.Identity, error) {
	id, ok := r[h]
	if !ok {
		return identity.Identity{}, identity.ErrNotResolvable
	}
	return id, nil
}

type fakeEnumerator struct {
	list    candidates.List
	calls   int
	targets []identity.Identity
}

func (e *fakeEnumerator) Enumerate(target identity.Identity, _ bool) candidates.List {
	e.calls++
	e.targets = append(e.targets, target)
	return e.list
}

type advanceCall struct {
	cursor  int
	dir     cycle.Direction
	restore bool
}

type fakeNavigator struct {
	calls []advanceCall
}

func (n *fakeNavigator) Advance(list candidates.List, cursor int, dir cycle.Direction, restore bool) (int, bool) {
	n.calls = append(n.calls, advanceCall{cursor: cursor, dir: dir, restore: restore})
	return cycle.Step(cursor, list.Len(), dir), true
}

type fixture struct {
	reg    *fakeRegistrar
	keys   fakeKeys
	fg     *fakeForeground
	enum   *fakeEnumerator
	nav    *fakeNavigator
	ctrl   *Controller
	chrome identity.Identity
}

func defaultBindings() Bindings {
	return Bindings{
		Forward:       hotkeys.MustParseBinding("Alt+`"),
		Backward:      hotkeys.MustParseBinding("Alt+Shift+`"),
		ToggleRestore: hotkeys.MustParseBinding("Ctrl+Alt+`"),
		ExitOrPause:   hotkeys.MustParseBinding("Ctrl+Alt+Shift+`"),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	chrome := identity.New(`C:\Program Files\Google\Chrome\chrome.exe`, 100)
	f := &fixture{
		reg:  newFakeRegistrar(),
		keys: fakeKeys{},
		fg:   &fakeForeground{hwnd: 0x10},
		enum: &fakeEnumerator{list: candidates.List{
			{Handle: 0x10, Identity: chrome},
			{Handle: 0x20, Identity: chrome},
			{Handle: 0x30, Identity: chrome},
		}},
		nav:    &fakeNavigator{},
		chrome: chrome,
	}
	f.ctrl = New(Deps{
		Registrar:  f.reg,
		Keys:       f.keys,
		Foreground: f.fg,
		Resolver:   fakeResolver{0x10: chrome, 0x20: chrome, 0x30: chrome},
		Enumerator: f.enum,
		Navigator:  f.nav,
	}, Settings{
		Bindings:          defaultBindings(),
		RestoreOnSwitch:   true,
		ActiveDesktopOnly: true,
	})
	seq := 0
	f.ctrl.newGestureID = func() uuid.UUID {
		seq++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(seq)})
	}
	return f
}

func (f *fixture) tap() {
	f.keys[vkLMenu] = keyDownBit | keyPressedSinceBit
	f.keys[vkRMenu] = 0
}

func (f *fixture) hold() {
	f.keys[vkLMenu] = keyDownBit
	f.keys[vkRMenu] = 0
}

func TestStartRegistersExitFirstThenCycling(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	assert.Equal(t,
		[]hotkeys.ID{HotkeyExitOrPause, HotkeyForward, HotkeyBackward, HotkeyToggleRestore},
		f.reg.attempts)
	assert.Len(t, f.reg.held, 4)
	assert.Equal(t, "Alt+`", f.reg.held[HotkeyForward].String())
}

func TestStartForwardFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.reg.fail[HotkeyForward] = hotkeys.ErrAlreadyRegistered

	err := f.ctrl.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForwardHotkey)
	assert.ErrorIs(t, err, hotkeys.ErrAlreadyRegistered)
}

func TestStartOtherFailuresDegrade(t *testing.T) {
	f := newFixture(t)
	f.reg.fail[HotkeyExitOrPause] = hotkeys.ErrAlreadyRegistered
	f.reg.fail[HotkeyBackward] = errors.New("access denied")
	f.reg.fail[HotkeyToggleRestore] = hotkeys.ErrAlreadyRegistered

	require.NoError(t, f.ctrl.Start())
	assert.Contains(t, f.reg.held, HotkeyForward)
	assert.NotContains(t, f.reg.held, HotkeyBackward)
}

func TestTapRebuildsAndHoldReusesList(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	require.Equal(t, 1, f.enum.calls)
	assert.Equal(t, f.chrome, f.enum.targets[0])
	first := f.ctrl.Status()
	assert.Equal(t, 1, first.Cursor)
	assert.NotEmpty(t, first.Gesture)

	// The foreground moved to the window we just activated; a hold keeps
	// walking the same list instead of rebuilding from it.
	f.fg.hwnd = 0x20
	f.hold()
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Equal(t, 1, f.enum.calls)
	second := f.ctrl.Status()
	assert.Equal(t, 2, second.Cursor)
	assert.Equal(t, first.Gesture, second.Gesture)

	require.Len(t, f.nav.calls, 2)
	assert.Equal(t, 0, f.nav.calls[0].cursor)
	assert.Equal(t, 1, f.nav.calls[1].cursor)
}

func TestFreshTapResetsCursor(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	f.hold()
	f.ctrl.HandleHotkey(HotkeyForward)
	gesture := f.ctrl.Status().Gesture

	f.tap()
	f.ctrl.HandleHotkey(HotkeyBackward)
	assert.Equal(t, 2, f.enum.calls)
	assert.Equal(t, advanceCall{cursor: 0, dir: cycle.Backward, restore: true}, f.nav.calls[2])
	assert.Equal(t, 2, f.ctrl.Status().Cursor)
	assert.NotEqual(t, gesture, f.ctrl.Status().Gesture)
}

func TestNoKeyStateCountsAsTap(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.ctrl.HandleHotkey(HotkeyForward)
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Equal(t, 2, f.enum.calls)
}

func TestUnresolvableForegroundDoesNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())
	f.fg.hwnd = 0x99

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Zero(t, f.enum.calls)
	assert.Empty(t, f.nav.calls)

	f.fg.err = errors.New("no foreground")
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Zero(t, f.enum.calls)
}

func TestFailedRebuildDropsPreviousCycle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	require.Len(t, f.nav.calls, 1)

	// Focus moves to a window whose process cannot be opened.
	f.fg.hwnd = 0x99
	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	st := f.ctrl.Status()
	assert.Zero(t, st.Candidates)
	assert.Zero(t, st.Cursor)
	assert.Empty(t, st.Gesture)

	f.hold()
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Len(t, f.nav.calls, 1, "a hold must not cycle the previous application's windows")
	assert.Equal(t, 1, f.enum.calls)
}

func TestHoldWithUnresolvableForegroundEndsCycle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)

	f.fg.err = errors.New("no foreground")
	f.hold()
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Len(t, f.nav.calls, 1)
	assert.Zero(t, f.ctrl.Status().Candidates)

	// Once focus is back, a hold without a live cycle starts a fresh one.
	f.fg.err = nil
	f.fg.hwnd = 0x20
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Equal(t, 2, f.enum.calls)
	require.Len(t, f.nav.calls, 2)
	assert.Equal(t, 0, f.nav.calls[1].cursor)
}

func TestSingleCandidateDoesNotActivate(t *testing.T) {
	f := newFixture(t)
	f.enum.list = f.enum.list[:1]
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Equal(t, 1, f.enum.calls)
	assert.Empty(t, f.nav.calls)
}

func TestPausedIgnoresCycling(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	f.ctrl.TogglePause()
	st := f.ctrl.Status()
	assert.Equal(t, Paused, st.Mode)
	assert.Zero(t, st.Candidates)

	assert.NotContains(t, f.reg.held, HotkeyForward)
	assert.NotContains(t, f.reg.held, HotkeyBackward)
	assert.NotContains(t, f.reg.held, HotkeyToggleRestore)
	assert.Contains(t, f.reg.held, HotkeyExitOrPause)

	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Equal(t, 1, f.enum.calls)
	assert.Len(t, f.nav.calls, 1)
}

func TestResumeReRegistersCycling(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.ctrl.SetPaused(true)
	f.reg.fail[HotkeyBackward] = hotkeys.ErrAlreadyRegistered
	f.ctrl.SetPaused(false)

	assert.Equal(t, Active, f.ctrl.Status().Mode)
	assert.Contains(t, f.reg.held, HotkeyForward)
	assert.NotContains(t, f.reg.held, HotkeyBackward)
	assert.Contains(t, f.reg.held, HotkeyToggleRestore)
}

func TestResumeRequestsAllHotkeysWhenForwardIsTaken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.ctrl.SetPaused(true)
	f.reg.fail[HotkeyForward] = hotkeys.ErrAlreadyRegistered
	f.reg.attempts = nil
	f.ctrl.SetPaused(false)

	assert.Equal(t, Active, f.ctrl.Status().Mode)
	assert.Equal(t,
		[]hotkeys.ID{HotkeyForward, HotkeyBackward, HotkeyToggleRestore},
		f.reg.attempts)
	assert.NotContains(t, f.reg.held, HotkeyForward)
	assert.Contains(t, f.reg.held, HotkeyBackward)
	assert.Contains(t, f.reg.held, HotkeyToggleRestore)
}

func TestExitOrPauseHotkey(t *testing.T) {
	tests := []struct {
		name        string
		left, right int16
		wantExit    bool
		wantMode    Mode
	}{
		{name: "left shift exits", left: keyDownBit, wantExit: true, wantMode: Active},
		{name: "right shift pauses", right: keyDownBit, wantMode: Paused},
		{name: "both shifts ignored", left: keyDownBit, right: keyDownBit, wantMode: Active},
		{name: "no shift ignored", wantMode: Active},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.ctrl.Start())
			f.keys[vkLShift] = tt.left
			f.keys[vkRShift] = tt.right

			exit := f.ctrl.HandleHotkey(HotkeyExitOrPause)
			assert.Equal(t, tt.wantExit, exit)
			assert.Equal(t, tt.wantExit, f.ctrl.ExitRequested())
			assert.Equal(t, tt.wantMode, f.ctrl.Status().Mode)
		})
	}
}

func TestPauseToggleTwiceResumes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())
	f.keys[vkRShift] = keyDownBit

	f.ctrl.HandleHotkey(HotkeyExitOrPause)
	f.ctrl.HandleHotkey(HotkeyExitOrPause)
	assert.Equal(t, Active, f.ctrl.Status().Mode)
	assert.Contains(t, f.reg.held, HotkeyForward)
}

func TestToggleRestoreAffectsNextSwitch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.ctrl.HandleHotkey(HotkeyToggleRestore)
	assert.False(t, f.ctrl.Status().RestoreOnSwitch)

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	require.Len(t, f.nav.calls, 1)
	assert.False(t, f.nav.calls[0].restore)

	f.ctrl.ToggleRestore()
	f.hold()
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.True(t, f.nav.calls[1].restore)
}

func TestExitIsTerminal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())

	f.ctrl.RequestExit()
	f.ctrl.SetPaused(true)
	assert.Equal(t, Active, f.ctrl.Status().Mode)
	assert.True(t, f.ctrl.HandleHotkey(HotkeyToggleRestore))
}

func TestUnknownHotkeyIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())
	assert.False(t, f.ctrl.HandleHotkey(99))
	assert.Zero(t, f.enum.calls)
}

func TestReconfigureReRegistersChangedBindings(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())
	f.ctrl.ToggleRestore()

	next := defaultBindings()
	next.Forward = hotkeys.MustParseBinding("Ctrl+Tab")
	f.reg.attempts = nil
	f.ctrl.Reconfigure(Settings{Bindings: next, RestoreOnSwitch: true, ActiveDesktopOnly: false})

	assert.Equal(t, []hotkeys.ID{HotkeyForward}, f.reg.attempts)
	assert.Equal(t, "Ctrl+TAB", f.reg.held[HotkeyForward].String())
	assert.False(t, f.ctrl.Status().RestoreOnSwitch, "runtime toggle survives reload")

	// The new forward modifier drives tap detection.
	f.keys[vkLControl] = keyDownBit | keyPressedSinceBit
	f.ctrl.HandleHotkey(HotkeyForward)
	assert.Equal(t, 1, f.enum.calls)
}

func TestReconfigureWhilePausedDefersCycling(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())
	f.ctrl.SetPaused(true)

	next := defaultBindings()
	next.Backward = hotkeys.MustParseBinding("Alt+PageUp")
	f.reg.attempts = nil
	f.ctrl.Reconfigure(Settings{Bindings: next})
	assert.Empty(t, f.reg.attempts)

	f.ctrl.SetPaused(false)
	assert.Equal(t, "Alt+PAGEUP", f.reg.held[HotkeyBackward].String())
}

func TestShutdownReleasesEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Start())
	f.ctrl.Shutdown()
	assert.Empty(t, f.reg.held)
}

type recordingActivator struct {
	activated []window.Handle
}

func (a *recordingActivator) IsMinimized(window.Handle) bool { return false }
func (a *recordingActivator) Restore(window.Handle) error    { return nil }
func (a *recordingActivator) Activate(h window.Handle) error {
	a.activated = append(a.activated, h)
	return nil
}

func TestCycleWithRealNavigator(t *testing.T) {
	f := newFixture(t)
	act := &recordingActivator{}
	f.ctrl.deps.Navigator = cycle.NewNavigator(act)
	require.NoError(t, f.ctrl.Start())

	f.tap()
	f.ctrl.HandleHotkey(HotkeyForward)
	f.hold()
	f.ctrl.HandleHotkey(HotkeyForward)
	f.ctrl.HandleHotkey(HotkeyForward)

	assert.Equal(t, []window.Handle{0x20, 0x30, 0x10}, act.activated)
}
