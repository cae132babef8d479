// Package useragent detects crawler and bot user agents so automated traffic
// never reaches the track store. Patterns follow the device-detector regex
// dialect, which needs PCRE semantics Go's regexp cannot express.
package useragent

import (
	_ "embed"
	"fmt"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed bots.yml
var botsFile []byte

// BotEntry is one bot pattern from the embedded database.
type BotEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	// Double-check pattern
	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

var (
	detector *botDetector
	once     sync.Once
)

type botDetector struct {
	bots  []BotEntry
	cache *regexCache
}

func getDetector() *botDetector {
	once.Do(func() {
		detector = &botDetector{cache: newRegexCache()}
		if err := yaml.Unmarshal(botsFile, &detector.bots); err != nil {
			fmt.Printf("Error parsing bots.yml: %v\n", err)
		}
	})
	return detector
}

// DetectBot returns the matching bot entry for a user agent, or nil.
func DetectBot(userAgent string) *BotEntry {
	d := getDetector()
	for i := range d.bots {
		regex, err := d.cache.get("(?i)" + d.bots[i].Regex)
		if err != nil {
			continue
		}
		if regex.MatchString(userAgent) {
			return &d.bots[i]
		}
	}
	return nil
}

// IsBot reports whether the user agent belongs to a known crawler.
func IsBot(userAgent string) bool {
	return DetectBot(userAgent) != nil
}
