package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/pkg/logger"
)

// Chooser answers a pick when no choice travels in the context.
type Chooser func(ctx context.Context, candidates []Candidate, opts PickOptions) (Selection, error)

// CancelChooser cancels every pick.
func CancelChooser(context.Context, []Candidate, PickOptions) (Selection, error) {
	return nil, nil
}

// CharactersFile lists the characters of an asset directory.
const CharactersFile = "characters.json"

// Local is a filesystem host: assets come from a directory, preferences
// live in a YAML file and exports are written to disk.
type Local struct {
	root      string
	base      string
	prefPath  string
	exportDir string
	chooser   Chooser
	logger    logger.Logger
	fetcher   *resource.Resolver

	mu sync.Mutex
}

var _ API = (*Local)(nil)

// NewLocal serves assets below root. Asset URLs are file:// URLs unless
// baseURL is set, in which case they are baseURL + the asset path.
func NewLocal(root, baseURL string, opts ...LocalOption) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("asset dir %q: %w", root, err)
	}
	l := &Local{
		root:      abs,
		base:      baseURL,
		prefPath:  filepath.Join(abs, "preference.yaml"),
		exportDir: filepath.Join(abs, "exports"),
		chooser:   CancelChooser,
		logger:    logger.OrNop().Named("local_host"),
		fetcher:   resource.NewResolver(nil),
	}
	if l.base != "" && !strings.HasSuffix(l.base, "/") {
		l.base += "/"
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root is the asset directory.
func (l *Local) Root() string { return l.root }

func (l *Local) assetURL(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if l.base != "" {
		return l.base + p
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(l.root, p))}).String()
}

func (l *Local) filePath(u string) (string, bool) {
	if l.base != "" {
		if rel, ok := strings.CutPrefix(u, l.base); ok {
			return filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+rel))), true
		}
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(parsed.Path), true
}

type characterEntry struct {
	ID     int    `yaml:"id"`
	Kind   string `yaml:"kind"`
	Status string `yaml:"status"`
}

type avatarEntry struct {
	Character *characterEntry `yaml:"character,omitempty"`
	URL       string          `yaml:"url,omitempty"`
}

type backgroundEntry struct {
	Path string `yaml:"path,omitempty"`
	URL  string `yaml:"url,omitempty"`
}

type preferenceFile struct {
	Avatar     *avatarEntry     `yaml:"avatar,omitempty"`
	Course     int              `yaml:"course,omitempty"`
	Background *backgroundEntry `yaml:"bg,omitempty"`
}

func toPreference(f preferenceFile) model.UserPreference {
	var p model.UserPreference
	if a := f.Avatar; a != nil {
		if a.Character != nil {
			p.Avatar = model.CharacterAvatar(model.CharacterImage(*a.Character))
		} else {
			p.Avatar = model.URLAvatar(a.URL)
		}
	}
	p.Course = f.Course
	if b := f.Background; b != nil {
		p.Background = model.BackgroundRef{Path: b.Path, URL: b.URL}
	}
	return p
}

func fromPreference(p model.UserPreference) preferenceFile {
	var f preferenceFile
	if !p.Avatar.IsZero() {
		f.Avatar = &avatarEntry{URL: p.Avatar.URL}
		if c := p.Avatar.Character; c != nil {
			f.Avatar = &avatarEntry{Character: (*characterEntry)(c)}
		}
	}
	f.Course = p.Course
	if !p.Background.IsZero() {
		f.Background = &backgroundEntry{Path: p.Background.Path, URL: p.Background.URL}
	}
	return f
}

// GetPreference reads the preference file; a missing file is an empty
// preference.
func (l *Local) GetPreference(_ context.Context) (model.UserPreference, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.prefPath)
	if errors.Is(err, fs.ErrNotExist) {
		return model.UserPreference{}, nil
	}
	if err != nil {
		return model.UserPreference{}, fmt.Errorf("read preference: %w", err)
	}
	var f preferenceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return model.UserPreference{}, &errs.DecodeError{Source: l.prefPath, Err: err}
	}
	return toPreference(f), nil
}

// SavePreference replaces the preference file atomically.
func (l *Local) SavePreference(ctx context.Context, p model.UserPreference) error {
	data, err := yaml.Marshal(fromPreference(p))
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := writeFileAtomic(l.prefPath, data); err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	l.logger.Debug(ctx, "preference saved", logger.String("path", l.prefPath))
	return nil
}

func writeFileAtomic(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

// GetImages reads local assets directly and fetches anything else.
func (l *Local) GetImages(ctx context.Context, urls []string) ([]resource.File, error) {
	files := make([]resource.File, len(urls))
	for i, u := range urls {
		var (
			data []byte
			err  error
		)
		if p, ok := l.filePath(u); ok {
			data, err = os.ReadFile(p)
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("%s: %w", p, errs.ErrResourceNotFound)
			}
		} else {
			data, err = l.fetcher.Bytes(ctx, u)
		}
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		files[i] = resource.File{Name: path.Base(u), URL: u, Data: data}
	}
	return files, nil
}

// CharacterPath is the asset path of a character image.
func CharacterPath(c model.CharacterImage) string {
	suffix := ""
	switch c.Status {
	case model.StatusAwaken:
		suffix = "u"
	case model.StatusLost:
		suffix = "l"
	}
	return fmt.Sprintf("img/char/%d%s_%s.png", c.ID, suffix, c.Kind)
}

// BannerPath is the asset path of a course banner.
func BannerPath(course int) string {
	return fmt.Sprintf("img/course/banner/%d.png", course)
}

// CoverPath is the asset path of a chart jacket.
func CoverPath(c CoverRef) string {
	return fmt.Sprintf("songs/%s/%s.jpg", c.SongID, model.Difficulty(c.Difficulty).Name())
}

// GradePath is the asset path of a score grade badge.
func GradePath(grade string) string {
	name := strings.ReplaceAll(strings.ToLower(grade), "+", "-plus")
	return "img/grade/" + name + ".png"
}

var ratingTiers = []int{350, 700, 1000, 1100, 1200, 1250, 1300}

// RatingPath is the asset path of the potential badge for a rating given in
// hundredths of potential. Negative ratings are hidden potentials.
func RatingPath(rating int) string {
	if rating < 0 {
		return "img/rating_off.png"
	}
	tier := len(ratingTiers)
	for i, limit := range ratingTiers {
		if rating < limit {
			tier = i
			break
		}
	}
	return "img/rating_" + strconv.Itoa(tier) + ".png"
}

func mapURLs[T any](l *Local, in []T, toPath func(T) string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = l.assetURL(toPath(v))
	}
	return out
}

func (l *Local) ResolveCharacterImages(_ context.Context, images []model.CharacterImage) ([]string, error) {
	return mapURLs(l, images, CharacterPath), nil
}

func (l *Local) ResolveAssets(_ context.Context, paths []string) ([]string, error) {
	return mapURLs(l, paths, func(p string) string { return p }), nil
}

func (l *Local) ResolveBanners(_ context.Context, courses []int) ([]string, error) {
	return mapURLs(l, courses, BannerPath), nil
}

func (l *Local) ResolveCovers(_ context.Context, covers []CoverRef) ([]string, error) {
	return mapURLs(l, covers, CoverPath), nil
}

func (l *Local) ResolveGradeImages(_ context.Context, grades []string) ([]string, error) {
	return mapURLs(l, grades, GradePath), nil
}

func (l *Local) ResolvePotentialBadge(_ context.Context, rating int) (string, error) {
	return l.assetURL(RatingPath(rating)), nil
}

// PickImage answers with the choice carried by ctx, else asks the chooser.
func (l *Local) PickImage(ctx context.Context, candidates []Candidate, opts PickOptions) (Selection, error) {
	sel, ok := ChoiceFromContext(ctx)
	if !ok {
		var err error
		if sel, err = l.chooser(ctx, candidates, opts); err != nil {
			return nil, err
		}
	}
	if b, isBasic := sel.(BasicSelection); isBasic && (b.Index < 0 || b.Index >= len(candidates)) {
		return nil, fmt.Errorf("pick %d of %d candidates: %w", b.Index, len(candidates), errs.ErrInvalidArgument)
	}
	if _, isCustom := sel.(CustomSelection); isCustom && opts.Custom == nil {
		return nil, fmt.Errorf("%s does not accept uploads: %w", opts.Title, errs.ErrInvalidArgument)
	}
	return sel, nil
}

// ExportFileName turns an export name into a single path element.
func ExportFileName(name string) string {
	return filepath.Base(strings.ReplaceAll(name, "/", "-"))
}

// ExportAsImage writes the blob into the export directory.
func (l *Local) ExportAsImage(ctx context.Context, blob Blob, opts ExportOptions) error {
	if opts.Filename == "" {
		return fmt.Errorf("export without a filename: %w", errs.ErrInvalidArgument)
	}
	target := filepath.Join(l.exportDir, ExportFileName(opts.Filename))
	if err := writeFileAtomic(target, blob.Data); err != nil {
		return fmt.Errorf("export %s: %w", target, err)
	}
	l.logger.Info(ctx, "exported image",
		logger.String("path", target),
		logger.String("type", blob.Type),
		logger.Int("bytes", len(blob.Data)),
	)
	return nil
}

// GetAllCharacters reads characters.json; without it only character 0
// exists.
func (l *Local) GetAllCharacters(_ context.Context) ([]Character, error) {
	data, err := os.ReadFile(filepath.Join(l.root, CharactersFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []Character{{ID: 0}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read characters: %w", err)
	}
	var out []Character
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &errs.DecodeError{Source: CharactersFile, Err: err}
	}
	return out, nil
}

func (l *Local) GetAssetsInfo(context.Context) (AssetsInfo, error) {
	banners := make([]int, model.Courses)
	for i := range banners {
		banners[i] = i + 1
	}
	return AssetsInfo{Banners: banners}, nil
}

// LoadScoreboard reads a scoreboard response from a JSON file.
func LoadScoreboard(name string) (Best30Response, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return Best30Response{}, fmt.Errorf("read scoreboard: %w", err)
	}
	var resp Best30Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Best30Response{}, &errs.DecodeError{Source: name, Err: err}
	}
	return resp, nil
}
