package sqlinline

const QInsertEditedImage = `--sql d5fd838c-2261-46ff-ade8-097f98381cc3
insert into edited_images (
    id, project_id, lineage_id, source_id, source_type, prompt, provider,
    provider_job_id, image_url, storage_path, aspect_ratio, created_at
)
values (
    $1::uuid, $2::uuid, $3::uuid, $4::uuid, nullif($5::text, ''), $6::text, $7::text,
    $8::text, $9::text, nullif($10::text, ''), nullif($11::text, ''), now()
)
returning created_at;
`

const QInsertGeneratedVideo = `--sql aad4dedd-9b09-423f-803b-cecf852e282e
insert into generated_videos (
    id, project_id, lineage_id, source_id, prompt, provider,
    provider_job_id, status, video_url, ratio, model, created_at
)
values (
    $1::uuid, $2::uuid, $3::uuid, $4::uuid, $5::text, $6::text,
    $7::text, $8::text, $9::text, nullif($10::text, ''), nullif($11::text, ''), now()
)
returning created_at;
`

const QInsertVideoSource = `--sql e9d314c9-7bb9-40e9-b7d7-749fa467be22
insert into video_sources (id, video_id, source_type, source_id, sort_order)
values ($1::uuid, $2::uuid, $3::text, $4::uuid, $5::int)
on conflict (video_id, sort_order) do update set
    source_type = excluded.source_type,
    source_id = excluded.source_id
returning id;
`

const QSelectLineageAssets = `--sql d447f1cf-522e-48e8-b08a-84673d53a2cc
select id::text, project_id::text, lineage_id::text, bucket, path, mime, created_at
from source_assets
where lineage_id = $1::uuid;
`

const QSelectLineageEditedImages = `--sql 885f78df-0fca-4192-aed9-9d11c2e45482
select id::text, project_id::text, lineage_id::text, source_id::text, coalesce(source_type, ''),
       prompt, provider, provider_job_id, image_url, coalesce(storage_path, ''),
       coalesce(aspect_ratio, ''), created_at
from edited_images
where lineage_id = $1::uuid;
`

const QSelectLineageVideos = `--sql f49df63e-b844-4f9a-a342-edfa3a859600
select id::text, project_id::text, lineage_id::text, source_id::text, prompt, provider,
       provider_job_id, status, video_url, coalesce(ratio, ''), coalesce(model, ''), created_at
from generated_videos
where lineage_id = $1::uuid;
`
