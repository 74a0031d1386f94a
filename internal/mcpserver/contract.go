package mcpserver

// ArticleFormatContract is the canonical article format returned to MCP
// clients so authoring tools produce files the pipeline accepts.
const ArticleFormatContract = `# Ansuz Article Format

Every article is a Markdown file with a YAML frontmatter block:

---
title: "Laravel Queues in Depth"
date: 2025-09-14
url: /2025/09/laravel-queues.html
tags:
  - laravel
  - queues
description: "A practical guide to queue workers, under 160 characters."
draft: false
faq:
  - question: "Why use queues?"
    answer: "To move slow work out of the request cycle."
---

# Heading

Markdown body goes here. Fenced code blocks are published verbatim.

## Rules

- title: required, non-empty.
- date: required; YYYY-MM-DD or RFC 3339.
- url: required; lowercase path ending in .html (e.g. /2025/09/slug.html);
  must be unique across the whole site.
- description: required; at most 160 characters.
- body: required, non-empty.
- tags, keywords, image, faq: optional.
- faq entries need both a non-empty question and a non-empty answer.
- draft: true keeps the article out of the published site.
`
