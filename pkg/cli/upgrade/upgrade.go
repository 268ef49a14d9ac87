/* Copyright 2025 Fieldsync Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package upgrade checks for a newer release of fieldsync
package upgrade

import (
	gocontext "context"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsync/fieldsync/pkg/cli/consts"
	"github.com/fieldsync/fieldsync/pkg/cli/context"
	"github.com/fieldsync/fieldsync/pkg/cli/log"
	"github.com/google/go-github/github"
	"github.com/pkg/errors"
)

const (
	githubOwner = "fieldsync"
	githubRepo  = "fieldsync"

	// upgradeInterval is the minimum number of seconds between two checks
	upgradeInterval = 86400 * 7
)

func parseVersion(s string) ([]int, error) {
	s = strings.TrimPrefix(s, "v")

	parts := strings.Split(s, ".")
	ret := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing version segment %s", part)
		}

		ret = append(ret, n)
	}

	return ret, nil
}

// isNewer reports whether the latest version is strictly newer than the
// current one. Unparseable versions, such as development builds, never
// count as outdated.
func isNewer(latest, current string) bool {
	lv, err := parseVersion(latest)
	if err != nil {
		return false
	}
	cv, err := parseVersion(current)
	if err != nil {
		return false
	}

	for i := 0; i < len(lv) && i < len(cv); i++ {
		if lv[i] != cv[i] {
			return lv[i] > cv[i]
		}
	}

	return len(lv) > len(cv)
}

func getLastCheckedAt(ctx context.FieldsyncCtx) (int64, error) {
	val, ok, err := ctx.Store.GetSystem(consts.SystemLastUpgradeCheck)
	if err != nil {
		return 0, errors.Wrap(err, "getting the last upgrade check time")
	}
	if !ok {
		return 0, nil
	}

	ret, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parsing the last upgrade check time")
	}

	return ret, nil
}

func touchLastCheckedAt(ctx context.FieldsyncCtx) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)

	if err := ctx.Store.SetSystem(consts.SystemLastUpgradeCheck, now); err != nil {
		return errors.Wrap(err, "updating the last upgrade check time")
	}

	return nil
}

func fetchLatestTag() (string, error) {
	gh := github.NewClient(nil)

	release, _, err := gh.Repositories.GetLatestRelease(gocontext.Background(), githubOwner, githubRepo)
	if err != nil {
		return "", errors.Wrap(err, "fetching the latest release")
	}

	return release.GetTagName(), nil
}

func checkVersion(ctx context.FieldsyncCtx) error {
	log.Infof("current version is %s\n", ctx.Version)

	latest, err := fetchLatestTag()
	if err != nil {
		return errors.Wrap(err, "getting the latest version")
	}

	log.Infof("latest version is %s\n", latest)

	if isNewer(latest, ctx.Version) {
		log.Infof("to upgrade, see https://github.com/%s/%s/releases\n", githubOwner, githubRepo)
	} else {
		log.Success("you are up-to-date\n\n")
	}

	return nil
}

// Run checks the latest release unconditionally
func Run(ctx context.FieldsyncCtx) error {
	if err := checkVersion(ctx); err != nil {
		return errors.Wrap(err, "checking version")
	}

	if err := touchLastCheckedAt(ctx); err != nil {
		return errors.Wrap(err, "recording the check time")
	}

	return nil
}

// Check checks for a newer release if enough time has passed since the
// last check and the user has not opted out
func Check(ctx context.FieldsyncCtx) error {
	if !ctx.EnableUpgradeCheck {
		return nil
	}

	lastCheckedAt, err := getLastCheckedAt(ctx)
	if err != nil {
		return errors.Wrap(err, "getting the last check time")
	}

	if time.Now().Unix()-lastCheckedAt < upgradeInterval {
		return nil
	}

	if err := Run(ctx); err != nil {
		return errors.Wrap(err, "running the upgrade check")
	}

	return nil
}
