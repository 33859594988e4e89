package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/openmined/decsync/internal/collection"
	"github.com/openmined/decsync/internal/config"
	"github.com/openmined/decsync/internal/decsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testDevice = "laptop-alice-decsync"

func addPeer(t *testing.T, dir, typ, name, device, ts string, info ...string) {
	t.Helper()
	layout := decsync.NewLayout(decsync.CollectionRoot(dir, typ, name))
	writeTestFile(t, layout.MarkerPath(device), ts)
	writeTestFile(t, layout.EntryPath(device, decsync.InfoEntity), strings.Join(info, "\n")+"\n")
}

// testTree builds a DecSync directory with one calendar shared by two peers.
func testTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, ".decsync-info"), `{"version":1}`)
	addPeer(t, dir, "calendars", "work", "phone-alice-app", "2021-01-01T00:00:00",
		`["t","name","Work"]`, `["t","color","#00ff00"]`)
	addPeer(t, dir, "calendars", "work", testDevice, "2030-01-01T00:00:00",
		`["t","name","Mine"]`)
	addPeer(t, dir, "contacts", "friends", "tablet-bob-app", "2020-06-01T12:00:00",
		`["t","name","Friends"]`)
	addPeer(t, dir, "feeds", "gone", "phone-alice-app", "2020-06-01T12:00:00",
		`["t","deleted",true]`)
	return dir
}

func baseArgs(t *testing.T, dir string) []string {
	return []string{"--config", filepath.Join(t.TempDir(), "config.json"), "--dir", dir, "--device", testDevice}
}

func TestCollectionsCommand_Table(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newCollectionsCmd()), append([]string{"collections"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "REMOTE ID")
	assert.Contains(t, out, "calendars/work")
	assert.Contains(t, out, "Work")
	assert.Contains(t, out, "#00ff00")
	assert.Contains(t, out, "contacts/friends")
	assert.NotContains(t, out, "Mine")
	assert.NotContains(t, out, "feeds/gone")
}

func TestCollectionsCommand_AllIncludesDeleted(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newCollectionsCmd()), append([]string{"collections", "feeds", "--all"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "feeds/gone")
	assert.Contains(t, out, "(deleted)")
	assert.NotContains(t, out, "calendars/work")
}

func TestCollectionsCommand_JSON(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newCollectionsCmd()), append([]string{"collections", "contacts", "-f", "json"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)

	var got []collection.Collection
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "contacts/friends", got[0].RemoteID)
	assert.Equal(t, "Friends", got[0].DisplayName)
	assert.Equal(t, "tablet-bob-app", got[0].Peer)
}

func TestCollectionsCommand_EmptyDirectory(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	out, err := execute(t, newTestRoot(newCollectionsCmd()), append([]string{"collections"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "no collections found")
}

func TestCollectionsCommand_UnknownType(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	_, err := execute(t, newTestRoot(newCollectionsCmd()), append([]string{"collections", "notes"}, baseArgs(t, dir)...)...)
	require.ErrorIs(t, err, collection.ErrUnknownSyncType)
}

func TestCollectionsCommand_BadFormat(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	_, err := execute(t, newTestRoot(newCollectionsCmd()), append([]string{"collections", "-f", "xml"}, baseArgs(t, dir)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestInfoCommand_Text(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newInfoCmd()), append([]string{"info", "calendars/work"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Collection calendars/work")
	assert.Contains(t, out, "Peer phone-alice-app (2021-01-01T00:00:00Z)")
	assert.Contains(t, out, "  color = #00ff00")
	assert.Contains(t, out, "  name = Work")
	assert.Less(t, strings.Index(out, "color"), strings.Index(out, "name ="))
}

func TestInfoCommand_YAML(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newInfoCmd()), append([]string{"info", "calendars/work", "--format", "yaml"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "calendars/work", got["remote_id"])
	assert.Equal(t, "Work", got["display_name"])
}

func TestInfoCommand_NotFound(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	_, err := execute(t, newTestRoot(newInfoCmd()), append([]string{"info", "calendars/missing"}, baseArgs(t, dir)...)...)
	require.ErrorIs(t, err, collection.ErrNotFound)
}

func TestPeersCommand_MarksOwnAndLatest(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)
	layout := decsync.NewLayout(decsync.CollectionRoot(dir, "calendars", "work"))
	writeTestFile(t, layout.MarkerPath("broken-device"), "not a time")

	out, err := execute(t, newTestRoot(newPeersCmd()), append([]string{"peers", "calendars/work", "-f", "json"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)

	var rows []peerRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)

	byID := map[string]peerRow{}
	for _, r := range rows {
		byID[r.Device] = r
	}
	assert.True(t, byID[testDevice].Own)
	assert.False(t, byID[testDevice].Latest)
	assert.True(t, byID["phone-alice-app"].Latest)
	assert.Equal(t, "2021-01-01T00:00:00Z", byID["phone-alice-app"].LastStored)
	assert.NotEmpty(t, byID["broken-device"].Error)
	assert.False(t, byID["broken-device"].Latest)
}

func TestPeersCommand_Text(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newPeersCmd()), append([]string{"peers", "calendars/work"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(this device)")
	assert.Contains(t, out, "(latest)")
	assert.Contains(t, out, "years ago")
}

func TestCheckCommand(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)

	out, err := execute(t, newTestRoot(newCheckCmd()), append([]string{"check"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ok "+dir)

	writeTestFile(t, filepath.Join(dir, ".decsync-info"), `{"version":2}`)
	_, err = execute(t, newTestRoot(newCheckCmd()), append([]string{"check"}, baseArgs(t, dir)...)...)
	require.ErrorIs(t, err, decsync.ErrUnsupportedVersion)
}

func TestLoadConfig_RequiresDirectory(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, newTestRoot(newCheckCmd()), "check", "--config", filepath.Join(t.TempDir(), "config.json"))
	require.ErrorIs(t, err, config.ErrNoDecSyncDir)
	assert.Contains(t, err.Error(), "decsync configure")
}

func TestReadConfig_FileEnvAndFlags(t *testing.T) {
	isolateEnv(t)
	fileDir := t.TempDir()
	envDir := t.TempDir()
	flagDir := t.TempDir()

	cfgPath := filepath.Join(t.TempDir(), "config.json")
	writeTestFile(t, cfgPath, `{"decsync_dir":"`+fileDir+`","app_name":"fromfile","device_id":"dev-file"}`)

	root := newTestRoot()
	require.NoError(t, root.PersistentFlags().Set("config", cfgPath))

	cfg, err := readConfig(root)
	require.NoError(t, err)
	assert.Equal(t, fileDir, cfg.DecSyncDir)
	assert.Equal(t, "fromfile", cfg.AppName)
	assert.Equal(t, "dev-file", cfg.DeviceID)
	assert.Equal(t, cfgPath, cfg.Path)

	t.Setenv("DECSYNC_DIR", envDir)
	cfg, err = readConfig(root)
	require.NoError(t, err)
	assert.Equal(t, envDir, cfg.DecSyncDir)

	require.NoError(t, root.PersistentFlags().Set("dir", flagDir))
	cfg, err = readConfig(root)
	require.NoError(t, err)
	assert.Equal(t, flagDir, cfg.DecSyncDir)
}

func TestConfigureCommand(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, newTestRoot(newConfigureCmd()), "configure", "--dir", dir, "--config", cfgPath, "--device", testDevice)
	require.NoError(t, err)
	assert.Contains(t, out, "saved "+cfgPath)

	saved, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, dir, saved.DecSyncDir)
	assert.Equal(t, testDevice, saved.DeviceID)

	_, err = execute(t, newTestRoot(newConfigureCmd()), "configure", "--dir", dir, "--config", cfgPath)
	require.ErrorIs(t, err, errSameDir)
}

func TestConfigureCommand_RejectsInvalidDirectories(t *testing.T) {
	isolateEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	_, err := execute(t, newTestRoot(newConfigureCmd()), "configure", "--dir", filepath.Join(t.TempDir(), "nope"), "--config", cfgPath)
	require.ErrorIs(t, err, errDirMissing)

	newer := t.TempDir()
	writeTestFile(t, filepath.Join(newer, ".decsync-info"), `{"version":3}`)
	_, err = execute(t, newTestRoot(newConfigureCmd()), "configure", "--dir", newer, "--config", cfgPath)
	require.ErrorIs(t, err, decsync.ErrUnsupportedVersion)

	_, err = execute(t, newTestRoot(newConfigureCmd()), "configure", "--config", cfgPath)
	require.ErrorIs(t, err, errNoDir)

	_, err = execute(t, newTestRoot(newConfigureCmd()), "configure", newer, "--config", cfgPath)
	require.Error(t, err)

	assert.NoFileExists(t, cfgPath)
}

func TestConfigureCommand_SwitchesDirectory(t *testing.T) {
	isolateEnv(t)
	first := testTree(t)
	second := testTree(t)
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	_, err := execute(t, newTestRoot(newConfigureCmd()), "configure", "--dir", first, "--config", cfgPath, "--device", testDevice)
	require.NoError(t, err)
	_, err = execute(t, newTestRoot(newConfigureCmd()), "configure", "--dir", second, "--config", cfgPath)
	require.NoError(t, err)

	saved, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, second, saved.DecSyncDir)
	assert.Equal(t, testDevice, saved.DeviceID)
}

func TestItemsCommand(t *testing.T) {
	isolateEnv(t)
	dir := testTree(t)
	layout := decsync.NewLayout(decsync.CollectionRoot(dir, "calendars", "work"))
	writeTestFile(t, layout.EntryPath("phone-alice-app", "resources/standup"), `["t",null,"BEGIN:VCALENDAR\nEND:VCALENDAR"]`+"\n")
	writeTestFile(t, layout.EntryPath(testDevice, "resources/private"), `["t",null,"BEGIN:VCALENDAR"]`+"\n")

	out, err := execute(t, newTestRoot(newItemsCmd()), append([]string{"items", "calendars/work"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "resources/standup")
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "resources/private")

	out, err = execute(t, newTestRoot(newItemsCmd()), append([]string{"items", "calendars/work", "-f", "json"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	var items []collection.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "resources/standup", items[0].RemoteID)
	assert.Equal(t, "BEGIN:VCALENDAR\nEND:VCALENDAR", items[0].Payload)
	assert.Equal(t, "text/calendar", items[0].MimeType)

	out, err = execute(t, newTestRoot(newItemsCmd()), append([]string{"items", "contacts/friends"}, baseArgs(t, dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "no items in contacts/friends")
}

func TestCLI_ExitCodeOnError(t *testing.T) {
	if testing.Short() {
		t.Skip("subprocess test")
	}
	out, code := runCLI(t, "info", "calendars/x", "--config", filepath.Join(t.TempDir(), "config.json"), "--dir", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "not a directory")
}
