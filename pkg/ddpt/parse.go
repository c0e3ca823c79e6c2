package ddpt

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// ParseArgs builds an Options record from the dd-style key=value token
// list named in spec.md §6 (if, of, of2, bs/ibs/obs, bpt, cdbsz, coe,
// coe_limit, conv, count, iflag, oflag, intio, skip, iseek, seek, oseek,
// protect, retries, status, verbose), plus the supplemented conf= key.
//
// A conf= token is resolved first against its profile's defaults, then
// every literal CLI token is re-applied on top so CLI input always
// wins, per spec.md's supplemented override rule.
func ParseArgs(args []string) (*Options, error) {
	o := NewOptions()

	confPath, confSection := findConf(args)
	if confPath != "" {
		if err := loadConfDefaults(o, confPath, confSection); err != nil {
			return nil, err
		}
		o.ConfPath = confPath
	}

	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errkf(SYNTAX, "malformed argument %q: expected key=value", arg)
		}
		if key == "conf" {
			continue // already applied above
		}
		if err := applyToken(o, key, val); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func findConf(args []string) (path, section string) {
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if ok && key == "conf" {
			path, section = splitConfValue(val)
			return
		}
	}
	return "", ""
}

// splitConfValue supports conf=path or conf=path:section, defaulting to
// the [defaults] section.
func splitConfValue(val string) (path, section string) {
	path, section, ok := strings.Cut(val, ":")
	if !ok {
		return val, "defaults"
	}
	return path, section
}

func loadConfDefaults(o *Options, path, section string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return errkf(FILE_ERROR, "loading conf=%s: %w", path, err)
	}
	sec, err := cfg.GetSection(section)
	if err != nil {
		log.Debugf("conf=%s has no [%s] section, skipping defaults", path, section)
		return nil
	}
	for _, key := range sec.Keys() {
		if err := applyToken(o, key.Name(), key.Value()); err != nil {
			return err
		}
	}
	return nil
}

func applyToken(o *Options, key, val string) error {
	switch key {
	case "if":
		o.InPath = val
	case "of":
		o.OutPath = val
	case "of2":
		o.Out2Path = val
	case "bs":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.IBS, o.OBS = n, n
	case "ibs":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.IBS = n
	case "obs":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.OBS = n
	case "bpt":
		n, err := parseBpt(val)
		if err != nil {
			return err
		}
		o.BptI, o.Obpc = n.bpt, n.obpc
	case "cdbsz":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.CDBSize = n
	case "coe":
		o.IFlags.COE = true
		o.OFlags.COE = true
	case "coe_limit":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.CoeLimit = n
	case "conv":
		c, err := ParseConv(val)
		if err != nil {
			return err
		}
		return ApplyConv(o, c)
	case "count":
		n, err := parseInt64(key, val)
		if err != nil {
			return err
		}
		o.DDCount = n
	case "iflag":
		f, err := ParseIFlag(val)
		if err != nil {
			return err
		}
		o.IFlags = f
	case "oflag":
		f, err := ParseOFlag(val)
		if err != nil {
			return err
		}
		o.OFlags = f
	case "intio":
		o.IntIO = parseBool(val)
	case "skip":
		n, err := parseInt64(key, val)
		if err != nil {
			return err
		}
		o.Skip = n
	case "iseek":
		n, err := parseInt64(key, val)
		if err != nil {
			return err
		}
		o.Skip = n
	case "seek":
		n, err := parseInt64(key, val)
		if err != nil {
			return err
		}
		o.Seek = n
	case "oseek":
		n, err := parseInt64(key, val)
		if err != nil {
			return err
		}
		o.Seek = n
	case "protect":
		return parseProtect(o, val)
	case "retries":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.Retries = n
	case "errblk":
		o.ErrBlkPath = val
	case "status":
		switch val {
		case "noxfer":
			o.StatusNoXfer = true
		case "progress":
			o.StatusProgress = true
		case "none":
			o.StatusNoXfer = true
			o.StatusProgress = false
		default:
			return errkf(SYNTAX, "unknown status= value %q", val)
		}
	case "verbose":
		n, err := parseInt(key, val)
		if err != nil {
			return err
		}
		o.Verbose = n
	default:
		return errkf(SYNTAX, "unknown option key %q", key)
	}
	return nil
}

type bptVal struct {
	bpt  int
	obpc int
}

// parseBpt parses bpt=N or bpt=N,M (input bpt, output-blocks-per-check).
func parseBpt(val string) (bptVal, error) {
	parts := strings.Split(val, ",")
	bpt, err := strconv.Atoi(parts[0])
	if err != nil {
		return bptVal{}, errkf(SYNTAX, "invalid bpt value %q", val)
	}
	out := bptVal{bpt: bpt}
	if len(parts) > 1 {
		obpc, err := strconv.Atoi(parts[1])
		if err != nil {
			return bptVal{}, errkf(SYNTAX, "invalid bpt obpc value %q", val)
		}
		out.obpc = obpc
	}
	return out, nil
}

// parseProtect parses protect=rdprotect,wrprotect[,pi_exp_in[,pi_exp_out]].
func parseProtect(o *Options, val string) error {
	parts := strings.Split(val, ",")
	ints := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return errkf(SYNTAX, "invalid protect= value %q", val)
		}
		ints[i] = n
	}
	if len(ints) > 0 {
		o.RDProtect = ints[0]
	}
	if len(ints) > 1 {
		o.WRProtect = ints[1]
	}
	if len(ints) > 2 {
		o.PIExpIn = ints[2]
	}
	if len(ints) > 3 {
		o.PIExpOut = ints[3]
	}
	return nil
}

func parseInt(key, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errkf(SYNTAX, "invalid %s= value %q", key, val)
	}
	return n, nil
}

func parseInt64(key, val string) (int64, error) {
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errkf(SYNTAX, "invalid %s= value %q", key, val)
	}
	return n, nil
}

func parseBool(val string) bool {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
