/* license: https://mit-license.org
 *
 *  Dao-Ke-Dao: Universal Message Module
 *
 *                                Written in 2020 by Moky <albert.moky@gmail.com>
 *
 * ==============================================================================
 * The MIT License (MIT)
 *
 * Copyright (c) 2020 Albert Moky
 * ==============================================================================
 */

package dkd

import "strings"

// contentTypeAliases lets legacy wire data spell a content type as a
// lowercase word ("text", "command") instead of the canonical numeric
// code, mirroring the crypto package's algorithm-alias registry (§9).
var contentTypeAliases = map[string]ContentType{
	"text":    TextContent,
	"file":    FileContent,
	"image":   ImageContent,
	"audio":   AudioContent,
	"video":   VideoContent,
	"page":    PageContent,
	"money":   MoneyContent,
	"command": CommandContent,
	"forward": ForwardContent,
}

// ResolveContentTypeAlias maps a legacy lowercase spelling to its
// canonical ContentType; unknown names return (0, false).
func ResolveContentTypeAlias(name string) (ContentType, bool) {
	t, ok := contentTypeAliases[strings.ToLower(name)]
	return t, ok
}

// RegisterContentTypeAlias teaches the registry an additional legacy
// spelling for an existing content type.
func RegisterContentTypeAlias(alias string, t ContentType) {
	contentTypeAliases[strings.ToLower(alias)] = t
}
