package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"ntwtf.ai/internal/config"
	"ntwtf.ai/internal/editor"
	"ntwtf.ai/internal/persistence/archive"
	"ntwtf.ai/internal/persistence/indexdb"
	"ntwtf.ai/internal/persistence/states"
	"ntwtf.ai/internal/save"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: saveedit <command> [flags] [args]

commands:
  discover                      list saves under the configured roots
  show <save>                   print the editable state
  lua <save> [query]            list database variables matching query
  set <save> field=value...     edit and write the save
  states <save>                 print area and orb states
  verify-states <save>          compare the states grammar with a Lua evaluation
  history <save>                list loads, saves and restores
  snapshots <save>              list restore points
  restore <save> <snapshot id>  write a restore point back over the save`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "discover":
		discoverCmd(args)
	case "show":
		showCmd(args)
	case "lua":
		luaCmd(args)
	case "set":
		setCmd(args)
	case "states":
		statesCmd(args)
	case "verify-states":
		verifyStatesCmd(args)
	case "history":
		historyCmd(args)
	case "snapshots":
		snapshotsCmd(args)
	case "restore":
		restoreCmd(args)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", cmd)
		usage()
		os.Exit(2)
	}
}

type common struct {
	fs      *flag.FlagSet
	config  *string
	dataDir *string
	asJSON  *bool
}

func newFlags(name string) common {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return common{
		fs:      fs,
		config:  fs.String("config", "", "path to editor.yaml (optional)"),
		dataDir: fs.String("data", "", "runtime data directory (overrides data_dir)"),
		asJSON:  fs.Bool("json", false, "print JSON"),
	}
}

func (c common) load() config.Config {
	cfg, err := config.Load(*c.config)
	if err != nil {
		fatal("load config:", err)
	}
	if d := strings.TrimSpace(*c.dataDir); d != "" {
		cfg.DataDir = filepath.Clean(d)
	}
	return cfg
}

func (c common) open() *editor.Runtime {
	logger := log.New(os.Stderr, "[saveedit] ", log.LstdFlags|log.Lmicroseconds)
	rt, err := editor.Open(c.load(), logger)
	if err != nil {
		fatal("open editor:", err)
	}
	return rt
}

// arg returns positional argument i or exits with the usage message.
func (c common) arg(i int, what string) string {
	if c.fs.NArg() <= i {
		fmt.Fprintf(os.Stderr, "%s: missing %s\n", c.fs.Name(), what)
		os.Exit(2)
	}
	return c.fs.Arg(i)
}

func fatal(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func discoverCmd(args []string) {
	c := newFlags("discover")
	_ = c.fs.Parse(args)
	cfg := c.load()

	roots := cfg.SaveRoots
	if c.fs.NArg() > 0 {
		roots = c.fs.Args()
	}
	saves := archive.Discover(roots)
	if *c.asJSON {
		printJSON(saves)
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tSIZE\tMODIFIED\tPATH")
	for _, s := range saves {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Kind, humanize.Bytes(uint64(s.Size)), humanize.Time(s.Modified), s.Path)
	}
	_ = tw.Flush()
}

func showCmd(args []string) {
	c := newFlags("show")
	_ = c.fs.Parse(args)
	path := c.arg(0, "save path")
	rt := c.open()
	defer rt.Close()

	st, err := rt.Session.Load(path)
	if err != nil {
		fatal("load:", err)
	}
	if *c.asJSON {
		printJSON(st)
		return
	}
	fmt.Printf("%s (%s) %s\n", st.BaseName, st.Kind, st.FolderPath)
	fmt.Printf("day %d %02d:%02d  area %q  money %s  xp %d  level %d  skill points %d\n",
		st.Day, st.Hours, st.Minutes, st.AreaID, humanize.Comma(st.Money), st.XpAmount, st.Level, st.SkillPoints)
	fmt.Printf("health %d  morale %d  bullets %d  weather %d\n", st.Health, st.Morale, st.Bullets, st.WeatherPreset)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, a := range st.Abilities {
		fmt.Fprintf(tw, "ability\t%s\t%d/%d\t%s\n", a.DisplayName, a.Value, a.MaximumValue, sig(a.IsSignature))
	}
	for _, s := range st.Skills {
		fmt.Fprintf(tw, "skill\t%s\t%d/%d\t%s\n", s.DisplayName, s.Value, s.MaximumValue, sig(s.IsSignature))
	}
	_ = tw.Flush()

	owned := 0
	for _, th := range st.Thoughts {
		if th.State != save.ThoughtNotAcquired {
			owned++
		}
	}
	fmt.Printf("%d items, %d thoughts acquired, %d tasks, %d failed checks, %d containers, %d database variables\n",
		len(st.OwnedItems), owned, len(st.Tasks), len(st.FailedChecks), len(st.Containers), st.LuaVariableCount)
}

func sig(b bool) string {
	if b {
		return "signature"
	}
	return ""
}

func luaCmd(args []string) {
	c := newFlags("lua")
	limit := c.fs.Int("limit", 0, "max results (0 = all)")
	_ = c.fs.Parse(args)
	path := c.arg(0, "save path")
	query := c.fs.Arg(1)
	rt := c.open()
	defer rt.Close()

	if _, err := rt.Session.Load(path); err != nil {
		fatal("load:", err)
	}
	vars, err := rt.Session.Query(query, *limit)
	if err != nil {
		fatal("query:", err)
	}
	if *c.asJSON {
		printJSON(vars)
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, v := range vars {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Key, v.Type, v.Value, v.Description)
	}
	_ = tw.Flush()
}

func setCmd(args []string) {
	c := newFlags("set")
	_ = c.fs.Parse(args)
	path := c.arg(0, "save path")
	if c.fs.NArg() < 2 {
		fatal("set: nothing to change")
	}
	rt := c.open()
	defer rt.Close()

	st, err := rt.Session.Load(path)
	if err != nil {
		fatal("load:", err)
	}
	u := st.Update()
	if err := applyAssignments(&u, c.fs.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "set:", err)
		os.Exit(2)
	}
	res, err := rt.Session.Save(u)
	if err != nil {
		fatal("save:", err)
	}
	if *c.asJSON {
		printJSON(res)
		return
	}
	if res.Backup != "" {
		fmt.Println("backup:", res.Backup)
	}
	if res.SnapshotID != "" {
		fmt.Println("restore point:", res.SnapshotID)
	}
	for _, e := range res.Coerced {
		fmt.Println("coerced:", e)
	}
	fmt.Println("written:", strings.Join(res.Fields, ", "))
}

func readStatesText(path string) string {
	loc, err := archive.Locate(path)
	if err != nil {
		fatal("locate:", err)
	}
	b, err := archive.Read(loc)
	if err != nil {
		fatal("read:", err)
	}
	if !b.Has(archive.StatesText) {
		fatal("no", archive.StatesText.Member(loc.Base), "in", loc.Path)
	}
	return string(b.Get(archive.StatesText))
}

func statesCmd(args []string) {
	c := newFlags("states")
	_ = c.fs.Parse(args)
	t := states.Parse(readStatesText(c.arg(0, "save path")))
	if *c.asJSON {
		printJSON(t)
		return
	}
	fmt.Print(states.Serialize(t))
}

func verifyStatesCmd(args []string) {
	c := newFlags("verify-states")
	_ = c.fs.Parse(args)
	text := readStatesText(c.arg(0, "save path"))
	mm, err := states.Verify(text)
	if err != nil {
		fatal("evaluate:", err)
	}
	if *c.asJSON {
		printJSON(mm)
		return
	}
	if len(mm) == 0 {
		fmt.Printf("ok: %d entries agree\n", states.Parse(text).Len())
		return
	}
	for _, m := range mm {
		fmt.Printf("%s[%q]: grammar=%s lua=%s\n", m.Table, m.Key, optInt(m.Regex), optInt(m.Lua))
	}
	os.Exit(1)
}

func optInt(p *int64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func historyCmd(args []string) {
	c := newFlags("history")
	limit := c.fs.Int("limit", 50, "max events (0 = all)")
	_ = c.fs.Parse(args)
	path := c.arg(0, "save path")
	cfg := c.load()

	loc, err := archive.Locate(path)
	if err != nil {
		fatal("locate:", err)
	}
	idx, err := indexdb.OpenSQLite(editor.IndexPath(cfg.DataDir))
	if err != nil {
		fatal("open index:", err)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	events, err := idx.History(ctx, loc.Path, *limit)
	if err != nil {
		fatal("history:", err)
	}
	if *c.asJSON {
		printJSON(events)
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range events {
		status := "ok"
		if e.Error != "" {
			status = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Time.Local().Format(time.DateTime), e.Op, strings.Join(e.Fields, ","), e.SnapshotID, status)
	}
	_ = tw.Flush()
}

func snapshotsCmd(args []string) {
	c := newFlags("snapshots")
	_ = c.fs.Parse(args)
	path := c.arg(0, "save path")
	rt := c.open()
	defer rt.Close()

	if rt.Snapshots == nil {
		fatal("restore points are disabled")
	}
	loc, err := archive.Locate(path)
	if err != nil {
		fatal("locate:", err)
	}
	list, err := rt.Snapshots.List(loc.Base)
	if err != nil {
		fatal("list:", err)
	}
	if *c.asJSON {
		printJSON(list)
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Reason, humanize.Time(e.CreatedAt), humanize.Bytes(uint64(e.Size)))
	}
	_ = tw.Flush()
}

func restoreCmd(args []string) {
	c := newFlags("restore")
	_ = c.fs.Parse(args)
	path := c.arg(0, "save path")
	id := c.arg(1, "snapshot id")
	rt := c.open()
	defer rt.Close()

	res, err := rt.Session.Restore(path, id)
	if err != nil {
		fatal("restore:", err)
	}
	if *c.asJSON {
		printJSON(res)
		return
	}
	fmt.Printf("restored %s from %s\n", res.State.FolderPath, id)
	if res.Backup != "" {
		fmt.Println("backup:", res.Backup)
	}
	if res.SnapshotID != "" {
		fmt.Println("previous state kept as:", res.SnapshotID)
	}
}
